package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/odds-service/ws"
)

// RedisBroadcaster publica catálogos recalculados para o WS do odds-service
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ws.PubSubChannel
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishCatalog(ctx context.Context, c catalog.Catalog) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(ws.CatalogUpdate{Category: string(c.Category), Payload: payload})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, msg).Err()
}
