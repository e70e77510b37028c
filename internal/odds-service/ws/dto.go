package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Category: obrigatória para subscribe/unsubscribe
type ClientMsg struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

// CatalogUpdate é o envelope publicado no pub/sub e repassado aos clientes
type CatalogUpdate struct {
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload"`
}
