package betting

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine é uma seleção ainda não enviada. Os campos descritivos são
// capturados no momento da seleção e não são relidos na liquidação.
type CartLine struct {
	Category   Category        `json:"category"`
	MarketID   int64           `json:"marketId"`
	MarketType MarketType      `json:"marketType"`
	Pick       string          `json:"pick"`
	Odds       decimal.Decimal `json:"odds"`

	HomeTeam     string           `json:"homeTeam,omitempty"`
	AwayTeam     string           `json:"awayTeam,omitempty"`
	LeagueName   string           `json:"leagueName,omitempty"`
	HandicapLine *decimal.Decimal `json:"handicapLine,omitempty"`
	StartTime    time.Time        `json:"startTime"`

	// mini-games
	GameEvent  string `json:"gameEvent,omitempty"`
	RoundLabel string `json:"roundLabel,omitempty"`
}

type SlipStatus string

const (
	SlipPending   SlipStatus = "pending"
	SlipWon       SlipStatus = "won"
	SlipLost      SlipStatus = "lost"
	SlipVoided    SlipStatus = "voided"
	SlipCancelled SlipStatus = "cancelled"
)

func (s SlipStatus) Final() bool { return s != SlipPending }

// Refs é a união fechada de referências por categoria.
// Exatamente um campo fica preenchido em cada BetDetail.
type Refs struct {
	CrossGameID       *int64 `json:"crossGameId,omitempty"`
	SpecialGameID     *int64 `json:"specialGameId,omitempty"`
	LiveGameID        *int64 `json:"liveGameId,omitempty"`
	PowerballGameID   *int64 `json:"powerballGameId,omitempty"`
	PowerLadderGameID *int64 `json:"powerLadderGameId,omitempty"`
	LadderGameID      *int64 `json:"ladderGameId,omitempty"`
}

// Populated devolve a categoria e o id da referência preenchida.
// n é o número de campos não nulos; qualquer valor diferente de 1 viola a invariante.
func (r Refs) Populated() (c Category, id int64, n int) {
	set := func(cat Category, p *int64) {
		if p != nil {
			c, id = cat, *p
			n++
		}
	}
	set(CategoryCross, r.CrossGameID)
	set(CategorySpecial, r.SpecialGameID)
	set(CategoryLive, r.LiveGameID)
	set(CategoryPowerball, r.PowerballGameID)
	set(CategoryPowerLadder, r.PowerLadderGameID)
	set(CategoryLadder, r.LadderGameID)
	return c, id, n
}

// BetDetail é uma perna do slip
type BetDetail struct {
	ID         string          `json:"id"`
	SlipID     string          `json:"slipId"`
	Refs       Refs            `json:"refs"`
	MarketType MarketType      `json:"marketType"`
	PickLabel  string          `json:"pickLabel"`
	PickOdds   decimal.Decimal `json:"pickOdds"`

	HomeTeam     string           `json:"homeTeam,omitempty"`
	AwayTeam     string           `json:"awayTeam,omitempty"`
	LeagueName   string           `json:"leagueName,omitempty"`
	HandicapLine *decimal.Decimal `json:"handicapLine,omitempty"`
	GameEvent    string           `json:"gameEvent,omitempty"`
	RoundLabel   string           `json:"roundLabel,omitempty"`
	StartTime    time.Time        `json:"startTime"`

	Status SlipStatus `json:"status"`
}

// BetSlip é o agregado persistido de um envio
type BetSlip struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Category         Category        `json:"category"`
	Details          []BetDetail     `json:"details"`
	TotalOdds        decimal.Decimal `json:"totalOdds"`
	Stake            int64           `json:"stake"`
	PotentialPayout  int64           `json:"potentialPayout"`
	SettlementAmount int64           `json:"settlementAmount"`
	Status           SlipStatus      `json:"status"`
	Memo             string          `json:"memo"`
	PlacedAt         time.Time       `json:"placedAt"`
	UserDeleted      bool            `json:"-"`
}
