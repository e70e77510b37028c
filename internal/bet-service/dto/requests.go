package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

// PlaceSlipRequest é o carrinho enviado pelo front
type PlaceSlipRequest struct {
	Category string        `json:"category" validate:"required"`
	Stake    int64         `json:"stake" validate:"gt=0"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

type LineRequest struct {
	MarketID     int64            `json:"marketId" validate:"gt=0"`
	MarketType   string           `json:"marketType"`
	Pick         string           `json:"pick" validate:"required"`
	Odds         decimal.Decimal  `json:"odds"`
	HomeTeam     string           `json:"homeTeam"`
	AwayTeam     string           `json:"awayTeam"`
	LeagueName   string           `json:"leagueName"`
	HandicapLine *decimal.Decimal `json:"handicapLine"`
	StartTime    time.Time        `json:"startTime"`
	GameEvent    string           `json:"gameEvent"`
	RoundLabel   string           `json:"roundLabel"`
}

// CartLines converte as linhas para o modelo de domínio
func (r PlaceSlipRequest) CartLines(c betting.Category) []betting.CartLine {
	out := make([]betting.CartLine, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = betting.CartLine{
			Category:     c,
			MarketID:     l.MarketID,
			MarketType:   betting.MarketType(l.MarketType),
			Pick:         l.Pick,
			Odds:         l.Odds,
			HomeTeam:     l.HomeTeam,
			AwayTeam:     l.AwayTeam,
			LeagueName:   l.LeagueName,
			HandicapLine: l.HandicapLine,
			StartTime:    l.StartTime,
			GameEvent:    l.GameEvent,
			RoundLabel:   l.RoundLabel,
		}
	}
	return out
}
