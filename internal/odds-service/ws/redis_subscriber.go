package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PubSubChannel é o canal padrão onde o catalog-worker publica catálogos recalculados
const PubSubChannel = "catalog_updates_broadcast"

// StartRedisSubscriber escuta o canal Redis Pub/Sub e repassa cada
// atualização de catálogo aos clientes WebSocket via Hub
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	if channel == "" {
		channel = PubSubChannel
	}
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var upd CatalogUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
