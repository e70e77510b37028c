package dto

import (
	"github.com/radieske/betting-engine/internal/bet-service/odds"
	"github.com/radieske/betting-engine/internal/shared/betting"
)

type PlaceSlipResponse struct {
	Slip         betting.BetSlip `json:"slip"`
	BalanceAfter int64           `json:"balanceAfter"`
}

type CancelSlipResponse struct {
	Slip         betting.BetSlip `json:"slip"`
	BalanceAfter int64           `json:"balanceAfter"`
}

type SlipListResponse struct {
	Slips []betting.BetSlip `json:"slips"`
}

// ErrorResponse é o corpo de todas as respostas de erro da API
type ErrorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Stale   []odds.Stale `json:"stale,omitempty"`
}
