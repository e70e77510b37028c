package topics

const (
	// Odds
	OddsUpdates = "odds_updates"

	// Bets
	BetPlaced    = "bet_placed"
	BetCancelled = "bet_cancelled"

	// DLQs
	BetPlacedDLQ    = "bet_placed_dlq"
	BetCancelledDLQ = "bet_cancelled_dlq"
)
