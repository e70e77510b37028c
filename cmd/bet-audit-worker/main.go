package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	betaudit "github.com/radieske/betting-engine/internal/bet-audit"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/db"
	"github.com/radieske/betting-engine/internal/shared/kafka"
	"github.com/radieske/betting-engine/internal/shared/logger"
	"github.com/radieske/betting-engine/internal/shared/metrics"
)

const groupID = "bet-audit"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetCancelled, cfg.TopicBetPlacedDLQ, cfg.TopicBetCancelledDLQ); err != nil {
			log.Warn("kafka topics", zap.Error(err))
		}
	}

	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bet_audit_recorded_total",
		Help: "transições gravadas em bet_transactions",
	}, []string{"topic"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bet_audit_errors_total",
		Help: "falhas por etapa",
	}, []string{"topic", "stage"})
	prometheus.MustRegister(recorded, failures)

	msrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
	)
	defer msrv.Close()

	store := betaudit.NewPostgresStore(pg)
	streams := []struct {
		topic, dlq string
		decode     betaudit.Decoder
	}{
		{cfg.TopicBetPlaced, cfg.TopicBetPlacedDLQ, betaudit.DecodePlaced},
		{cfg.TopicBetCancelled, cfg.TopicBetCancelledDLQ, betaudit.DecodeCancelled},
	}

	var wg sync.WaitGroup
	for _, s := range streams {
		reader := kafka.NewReader(cfg.KafkaBrokers, s.topic, groupID)
		defer reader.Close()
		dlq := kafka.NewWriter(cfg.KafkaBrokers, s.dlq)
		defer dlq.Close()

		topic := s.topic
		p := &betaudit.Processor{
			Log:        log.With(zap.String("topic", topic)),
			Reader:     reader,
			Decode:     s.decode,
			Store:      store,
			DLQ:        dlq,
			Retries:    3,
			Backoff:    200 * time.Millisecond,
			OnRecorded: func() { recorded.WithLabelValues(topic).Inc() },
			OnError:    func(stage string) { failures.WithLabelValues(topic, stage).Inc() },
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Run(ctx)
		}()
	}

	log.Info("bet-audit-worker running", zap.String("metrics_port", cfg.MetricsPort))
	wg.Wait()
	log.Info("bet-audit-worker stopped")
}
