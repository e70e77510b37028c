package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/radieske/betting-engine/internal/shared/kafka"
	"github.com/radieske/betting-engine/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de ciclo de vida do slip; a chave é o id do slip
type KafkaPublisher struct {
	Placed    *kafka.Writer
	Cancelled *kafka.Writer
}

func NewKafkaPublisher(placed, cancelled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Placed: placed, Cancelled: cancelled}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Placed, e.SlipID, b)
}

func (p *KafkaPublisher) PublishBetCancelled(ctx context.Context, e events.BetCancelled) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Cancelled, e.SlipID, b)
}
