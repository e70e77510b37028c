package dto

type DepositRequest struct {
	Money      int64 `json:"money" validate:"gt=0"`
	BonusPoint int64 `json:"bonusPoint" validate:"gte=0"`
}

type WithdrawalRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}
