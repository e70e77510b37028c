package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/shared/betting"
)

type Rebuilder interface {
	Rebuild(ctx context.Context, c betting.Category) (catalog.Catalog, error)
}

// Scheduler recalcula periodicamente todos os catálogos, cobrindo
// mercados que entram ou saem da janela sem passar pelo Kafka.
type Scheduler struct {
	log        *zap.Logger
	cron       *cron.Cron
	rebuilder  Rebuilder
	categories []betting.Category
	timeout    time.Duration

	OnRun func(failed int)
}

func New(log *zap.Logger, rb Rebuilder, categories []betting.Category) *Scheduler {
	return &Scheduler{
		log: log,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		rebuilder:  rb,
		categories: categories,
		timeout:    30 * time.Second,
	}
}

// Register agenda a reconstrução completa; a expressão aceita segundos
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		jctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		s.RebuildAll(jctx)
	})
	if err != nil {
		return fmt.Errorf("cron schedule %q: %w", spec, err)
	}
	return nil
}

// RebuildAll devolve quantas categorias falharam
func (s *Scheduler) RebuildAll(ctx context.Context) int {
	failed := 0
	for _, c := range s.categories {
		if ctx.Err() != nil {
			failed++
			continue
		}
		if _, err := s.rebuilder.Rebuild(ctx, c); err != nil {
			s.log.Warn("scheduled rebuild failed", zap.String("category", string(c)), zap.Error(err))
			failed++
		}
	}
	if s.OnRun != nil {
		s.OnRun(failed)
	}
	return failed
}

func (s *Scheduler) Start() {
	s.log.Info("catalog scheduler started", zap.Int("categories", len(s.categories)))
	s.cron.Start()
}

// Stop espera o job em andamento terminar
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("catalog scheduler stopped")
}
