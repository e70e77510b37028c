package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/pkg/contracts/events"
)

// Rebuilder é satisfeito por *catalog.Builder
type Rebuilder interface {
	Rebuild(ctx context.Context, c betting.Category) (catalog.Catalog, error)
}

// Processor consome notificações de mercados alterados e recalcula o catálogo
// da categoria. Callbacks de métricas podem ser usadas para monitoramento.
type Processor struct {
	Log     *zap.Logger
	Reader  *kafka.Reader
	Catalog Rebuilder

	OnConsumed func()
	OnRebuilt  func(category string)
	OnError    func(stage string)
}

// Run inicia o loop principal de consumo
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m.Value)
	}
}

// Handle processa uma mensagem; erros são logados e contados, nunca interrompem o loop
func (p *Processor) Handle(ctx context.Context, value []byte) {
	var ev events.MarketsChanged
	if err := json.Unmarshal(value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return
	}
	c, err := betting.ParseCategory(ev.Category)
	if err != nil || c.Kind() != betting.KindSports {
		p.Log.Warn("ignoring markets change", zap.String("category", ev.Category))
		p.fail("category")
		return
	}
	if _, err := p.Catalog.Rebuild(ctx, c); err != nil {
		p.Log.Warn("catalog rebuild failed", zap.String("category", ev.Category), zap.Error(err))
		p.fail("rebuild")
		return
	}
	if p.OnRebuilt != nil {
		p.OnRebuilt(ev.Category)
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
