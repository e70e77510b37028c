package odds

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/cache"
)

// Stale descreve uma perna cuja odd no cache difere da exibida ao usuário
type Stale struct {
	MarketID int64           `json:"marketId"`
	Pick     string          `json:"pick"`
	Shown    decimal.Decimal `json:"shown"`
	Current  decimal.Decimal `json:"current"`
}

type Validator struct {
	Rdb *redis.Client
}

func NewValidator(r *redis.Client) *Validator { return &Validator{Rdb: r} }

// Check compara o carrinho com as odds correntes publicadas pelo catalog-worker.
// É só um pré-check: chaves ausentes são ignoradas e a transação de aposta relê o banco.
// Mini-games não têm odd corrente no cache.
func (v *Validator) Check(ctx context.Context, c betting.Category, lines []betting.CartLine) ([]Stale, error) {
	if c.IsMiniGame() || len(lines) == 0 {
		return nil, nil
	}
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = cache.KeyCurrentOdds(l.MarketID, l.Pick)
	}

	vals, err := v.Rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget current odds: %w", err)
	}

	var stale []Stale
	for k, raw := range vals {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		cur, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		l := lines[k]
		if !cur.Equal(l.Odds) {
			stale = append(stale, Stale{MarketID: l.MarketID, Pick: l.Pick, Shown: l.Odds, Current: cur})
		}
	}
	return stale, nil
}
