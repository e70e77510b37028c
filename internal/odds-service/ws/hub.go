package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla aceita um único escritor por conexão
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas de catálogo por categoria
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// Cada cliente pode assinar várias categorias.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if _, err := betting.ParseCategory(msg.Category); err != nil {
				_ = c.write([]byte(`{"type":"error","error":"unknown category"}`))
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.Category]; !ok {
				h.subs[msg.Category] = make(map[*client]struct{})
			}
			h.subs[msg.Category][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.Category, c)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	h.mu.Lock()
	for cat, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, cat)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(category string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[category]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, category)
		}
	}
}

// Broadcast envia o catálogo atualizado para os inscritos na categoria
func (h *Hub) Broadcast(update CatalogUpdate) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[update.Category]))
	for c := range h.subs[update.Category] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range conns {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
