package events

// BetPlaced é publicado pelo bet-service depois do commit da aposta
type BetPlaced struct {
	SlipID          string `json:"slip_id"`
	UserID          string `json:"user_id"`
	Category        string `json:"category"`
	Legs            int    `json:"legs"`
	Stake           int64  `json:"stake"`
	TotalOdds       string `json:"total_odds"` // decimal em texto, ex: "5.83"
	PotentialPayout int64  `json:"potential_payout"`
	BalanceAfter    int64  `json:"balance_after"`
	Memo            string `json:"memo"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}

// BetCancelled é publicado depois que o cancelamento e o estorno foram confirmados
type BetCancelled struct {
	SlipID       string `json:"slip_id"`
	UserID       string `json:"user_id"`
	Category     string `json:"category"`
	Refunded     int64  `json:"refunded"`
	BalanceAfter int64  `json:"balance_after"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
