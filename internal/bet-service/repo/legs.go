package repo

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

var (
	ErrOddsChanged  = errors.New("odds changed since selection")
	ErrMarketClosed = errors.New("market is no longer open")
	ErrInvalidPick  = errors.New("pick not offered by market")
)

// marketState é o estado persistido de um mercado lido com FOR SHARE
type marketState struct {
	Active      bool
	ResultState betting.ResultState
	StartTime   time.Time // closes_at nos mini-games

	// esportes
	Home, Away decimal.Decimal
	Tie        *decimal.Decimal

	// mini-games: uma linha por pick
	MiniPick string
	MiniOdds decimal.Decimal
}

// verifyLeg compara a perna do carrinho com o estado atual do mercado.
// Devolve a odd persistida; a perna é recusada se ela divergir da exibida.
func verifyLeg(c betting.Category, d betting.BetDetail, m marketState, now time.Time) (decimal.Decimal, error) {
	if !m.Active || m.ResultState != betting.ResultPending || !m.StartTime.After(now) {
		return decimal.Zero, ErrMarketClosed
	}

	var cur decimal.Decimal
	if c.IsMiniGame() {
		if d.PickLabel != m.MiniPick {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPick, d.PickLabel)
		}
		cur = m.MiniOdds
	} else {
		row := betting.MarketRow{HomeOdds: m.Home, TieOdds: m.Tie, AwayOdds: m.Away}
		odd, ok := row.OddsFor(betting.Pick(d.PickLabel))
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPick, d.PickLabel)
		}
		cur = odd
	}

	if !cur.Equal(d.PickOdds) {
		return cur, fmt.Errorf("%w: shown %s, current %s", ErrOddsChanged, d.PickOdds, cur)
	}
	return cur, nil
}
