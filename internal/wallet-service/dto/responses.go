package dto

import (
	"github.com/radieske/betting-engine/internal/wallet-service/repo"
	"github.com/radieske/betting-engine/internal/wallet-service/rolling"
)

type WalletResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type DepositResponse struct {
	Deposit repo.Deposit `json:"deposit"`
	Balance *int64       `json:"balance,omitempty"`
}

type WithdrawalResponse struct {
	Withdrawal repo.Withdrawal `json:"withdrawal"`
	Balance    int64           `json:"balance"`
}

type RollingResponse struct {
	UserID  string              `json:"userId"`
	Rolling rolling.Percentages `json:"rolling"`
}

type LedgerResponse struct {
	Entries []repo.LedgerEntry `json:"entries"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
