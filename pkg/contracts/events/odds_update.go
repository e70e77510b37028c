package events

import "time"

// MarketsChanged é publicado no tópico "odds_updates" sempre que o feed
// grava ou altera mercados de uma categoria
type MarketsChanged struct {
	Category  string    `json:"category"`
	MarketIDs []int64   `json:"market_ids,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}
