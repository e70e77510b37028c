package slip

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/config"
)

var (
	ErrUnknownCategory = errors.New("unknown bet category")
	ErrNotSlipCategory = errors.New("category is not placed through bet slips")
	ErrLegCount        = errors.New("invalid number of legs")
	ErrLegCategory     = errors.New("cart line category differs from slip category")
)

// Result é o que o builder devolve para a transação de aposta
type Result struct {
	Details []betting.BetDetail
	Memo    string
}

// Build converte as linhas do carrinho nos detalhes persistidos da categoria.
// É pura: saldo, limites e mercado aberto são validados pela transação chamadora.
func Build(category betting.Category, lines []betting.CartLine) (Result, error) {
	if !category.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if len(lines) == 0 || (category.IsMiniGame() && len(lines) != 1) {
		return Result{}, fmt.Errorf("%w: %d for %s", ErrLegCount, len(lines), category)
	}

	details := make([]betting.BetDetail, 0, len(lines))
	for i, l := range lines {
		if l.Category != "" && l.Category != category {
			return Result{}, fmt.Errorf("%w: line %d is %s", ErrLegCategory, i, l.Category)
		}
		refs, err := refsFor(category, l.MarketID)
		if err != nil {
			return Result{}, err
		}
		details = append(details, betting.BetDetail{
			Refs:         refs,
			MarketType:   l.MarketType,
			PickLabel:    l.Pick,
			PickOdds:     l.Odds,
			HomeTeam:     l.HomeTeam,
			AwayTeam:     l.AwayTeam,
			LeagueName:   l.LeagueName,
			HandicapLine: l.HandicapLine,
			GameEvent:    l.GameEvent,
			RoundLabel:   l.RoundLabel,
			StartTime:    l.StartTime,
			Status:       betting.SlipPending,
		})
	}

	return Result{Details: details, Memo: memo(category, lines)}, nil
}

// refsFor preenche exatamente uma referência. Toda categoria nova precisa de um case aqui;
// TestRefsCoverEveryCategory falha se faltar.
func refsFor(c betting.Category, id int64) (betting.Refs, error) {
	var r betting.Refs
	switch c {
	case betting.CategoryCross:
		r.CrossGameID = &id
	case betting.CategorySpecial:
		r.SpecialGameID = &id
	case betting.CategoryLive:
		r.LiveGameID = &id
	case betting.CategoryPowerball:
		r.PowerballGameID = &id
	case betting.CategoryPowerLadder:
		r.PowerLadderGameID = &id
	case betting.CategoryLadder:
		r.LadderGameID = &id
	case betting.CategoryCasino, betting.CategorySlot:
		return r, fmt.Errorf("%w: %s", ErrNotSlipCategory, c)
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return r, nil
}

func memo(c betting.Category, lines []betting.CartLine) string {
	if c.IsMiniGame() {
		l := lines[0]
		return fmt.Sprintf("%s %s 배팅", l.GameEvent, l.RoundLabel)
	}
	return fmt.Sprintf("%s %d폴더 배팅", c.Label(), len(lines))
}

// TotalOdds é o produto das odds das pernas, arredondado a duas casas
func TotalOdds(details []betting.BetDetail) decimal.Decimal {
	total := decimal.NewFromInt(1)
	for _, d := range details {
		total = total.Mul(d.PickOdds)
	}
	return total.Round(2)
}

// PotentialPayout trunca stake × odd total para unidade inteira
func PotentialPayout(stake int64, totalOdds decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(totalOdds).Floor().IntPart()
}

var (
	ErrStakeOutOfRange = errors.New("stake outside level limits")
	ErrTooManyLegs     = errors.New("too many legs for level")
	ErrPayoutLimit     = errors.New("potential payout above level limit")
)

// CheckLimits valida o slip contra os limites do nível do usuário
func CheckLimits(l config.LevelLimit, stake int64, legs int, payout int64) error {
	switch {
	case stake < l.MinStake || (l.MaxStake > 0 && stake > l.MaxStake):
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrStakeOutOfRange, stake, l.MinStake, l.MaxStake)
	case l.MaxLegs > 0 && legs > l.MaxLegs:
		return fmt.Errorf("%w: %d > %d", ErrTooManyLegs, legs, l.MaxLegs)
	case l.MaxPayout > 0 && payout > l.MaxPayout:
		return fmt.Errorf("%w: %d > %d", ErrPayoutLimit, payout, l.MaxPayout)
	}
	return nil
}
