package betaudit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/pkg/contracts/events"
)

var ErrBadPayload = errors.New("bad payload")

// Transition é uma linha do histórico de status de um slip
type Transition struct {
	SlipID    string
	OldStatus string
	NewStatus string
	Reason    string
}

// Decoder transforma a mensagem de um tópico em transição
type Decoder func(value []byte) (Transition, error)

func DecodePlaced(value []byte) (Transition, error) {
	var e events.BetPlaced
	if err := json.Unmarshal(value, &e); err != nil || e.SlipID == "" {
		return Transition{}, ErrBadPayload
	}
	return Transition{
		SlipID:    e.SlipID,
		OldStatus: "",
		NewStatus: "pending",
		Reason:    fmt.Sprintf("%s stake=%d odds=%s", e.Memo, e.Stake, e.TotalOdds),
	}, nil
}

func DecodeCancelled(value []byte) (Transition, error) {
	var e events.BetCancelled
	if err := json.Unmarshal(value, &e); err != nil || e.SlipID == "" {
		return Transition{}, ErrBadPayload
	}
	return Transition{
		SlipID:    e.SlipID,
		OldStatus: "pending",
		NewStatus: "cancelled",
		Reason:    fmt.Sprintf("user cancel refunded=%d", e.Refunded),
	}, nil
}

type Store interface {
	Record(ctx context.Context, t Transition) error
}

// MessageWriter é satisfeito por *kafka.Writer (DLQ)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome um tópico de eventos de slip e grava o histórico.
// Mensagens que falham depois das tentativas vão para a DLQ e são confirmadas.
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Decode  Decoder
	Store   Store
	DLQ     MessageWriter // opcional
	Retries int
	Backoff time.Duration

	OnRecorded func()
	OnError    func(stage string)
}

func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch", zap.Error(err))
			p.fail("read")
			time.Sleep(time.Second)
			continue
		}
		p.Handle(ctx, m)
		if err := p.Reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			p.Log.Warn("kafka commit", zap.Error(err))
			p.fail("commit")
		}
	}
}

// Handle processa uma mensagem; nunca devolve erro para não travar a partição
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	t, err := p.Decode(m.Value)
	if err != nil {
		p.Log.Error("decode slip event", zap.String("topic", m.Topic), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, err)
		return
	}

	for attempt := 0; ; attempt++ {
		err = p.Store.Record(ctx, t)
		if err == nil || attempt >= p.Retries || ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * p.Backoff)
	}
	if err != nil {
		p.Log.Error("record transition", zap.String("slip_id", t.SlipID), zap.Error(err))
		p.fail("store")
		p.deadLetter(ctx, m, err)
		return
	}
	if p.OnRecorded != nil {
		p.OnRecorded()
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq write", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
