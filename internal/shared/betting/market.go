package betting

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MarketType é o tipo de mercado vindo do feed (match, handicap, over_under, ...)
type MarketType string

const (
	MarketMatch     MarketType = "match"
	MarketHandicap  MarketType = "handicap"
	MarketOverUnder MarketType = "over_under"
)

// GameName agrupa tipos de mercado exibidos no mesmo bloco da UI.
// match e handicap compartilham o bloco "승무패"; os demais usam o próprio tipo.
func (t MarketType) GameName() string {
	switch t {
	case MarketMatch, MarketHandicap:
		return "승무패"
	case MarketOverUnder:
		return "언더오버"
	}
	return string(t)
}

type ResultState string

const (
	ResultPending  ResultState = "pending"
	ResultSettled  ResultState = "settled"
	ResultVoided   ResultState = "voided"
	ResultExcluded ResultState = "excluded"
)

// MarketRow é uma instância de mercado como chega do feed de odds
type MarketRow struct {
	ID           int64            `json:"id"`
	Category     Category         `json:"category"`
	MarketType   MarketType       `json:"marketType"`
	LeagueID     int64            `json:"leagueId"`
	LeagueName   string           `json:"leagueName"`
	HomeTeamID   int64            `json:"homeTeamId"`
	HomeTeam     string           `json:"homeTeam"`
	AwayTeamID   int64            `json:"awayTeamId"`
	AwayTeam     string           `json:"awayTeam"`
	StartTime    time.Time        `json:"startTime"`
	HomeOdds     decimal.Decimal  `json:"homeOdds"`
	TieOdds      *decimal.Decimal `json:"tieOdds,omitempty"`
	AwayOdds     decimal.Decimal  `json:"awayOdds"`
	HandicapLine *decimal.Decimal `json:"handicapLine,omitempty"`
	ResultState  ResultState      `json:"resultState"`
}

// FixtureKey identifica o evento real ao qual o mercado pertence
type FixtureKey struct {
	StartTime  int64
	LeagueID   int64
	HomeTeamID int64
	AwayTeamID int64
}

func (m MarketRow) FixtureKey() FixtureKey {
	return FixtureKey{
		StartTime:  m.StartTime.Unix(),
		LeagueID:   m.LeagueID,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
	}
}

var ErrMalformedMarket = errors.New("malformed market row")

// Validate verifica os campos obrigatórios para exibição
func (m MarketRow) Validate() error {
	switch {
	case m.ID <= 0,
		!m.Category.Valid(),
		m.MarketType == "",
		m.LeagueID <= 0,
		m.HomeTeamID <= 0,
		m.AwayTeamID <= 0,
		m.StartTime.IsZero(),
		!m.HomeOdds.IsPositive(),
		!m.AwayOdds.IsPositive():
		return ErrMalformedMarket
	}
	return nil
}

// Pick é o resultado escolhido dentro de um mercado
type Pick string

const (
	PickHome Pick = "home"
	PickTie  Pick = "tie"
	PickAway Pick = "away"
)

// OddsFor devolve a odd do pick; ok=false quando o mercado não oferece o pick
func (m MarketRow) OddsFor(p Pick) (decimal.Decimal, bool) {
	switch p {
	case PickHome:
		return m.HomeOdds, true
	case PickAway:
		return m.AwayOdds, true
	case PickTie:
		if m.TieOdds == nil {
			return decimal.Zero, false
		}
		return *m.TieOdds, true
	}
	return decimal.Zero, false
}
