package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/catalog-worker/consumer"
	"github.com/radieske/betting-engine/internal/catalog-worker/pubsub"
	"github.com/radieske/betting-engine/internal/catalog-worker/schedule"
	ocache "github.com/radieske/betting-engine/internal/odds-service/cache"
	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/odds-service/repo"
	"github.com/radieske/betting-engine/internal/shared/cache"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/db"
	"github.com/radieske/betting-engine/internal/shared/kafka"
	"github.com/radieske/betting-engine/internal/shared/logger"
	"github.com/radieske/betting-engine/internal/shared/metrics"
)

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
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	builder := &catalog.Builder{
		Log:         log,
		Source:      repo.NewReadRepo(pg),
		Store:       ocache.New(rdb, cfg.Policy.Catalog.CacheTTL),
		Broadcaster: pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		Window:      cfg.Policy.Catalog.Window,
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_messages_consumed_total", Help: "mensagens consumidas"})
	rebuilt := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "catalog_rebuilds_total", Help: "catálogos recalculados"}, []string{"category"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "catalog_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, rebuilt, errorsBy)

	sched := schedule.New(log, builder, catalog.SportsCategories)
	sched.OnRun = func(failed int) {
		if failed > 0 {
			errorsBy.WithLabelValues("scheduled").Add(float64(failed))
		}
	}
	if err := sched.Register(ctx, cfg.Policy.Catalog.RebuildSpec); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	// aquece o cache antes do primeiro tick
	sched.RebuildAll(ctx)
	sched.Start()
	defer sched.Stop()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicOddsUpdates, "catalog-worker")
	defer reader.Close()

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Catalog:    builder,
		OnConsumed: func() { consumed.Inc() },
		OnRebuilt:  func(c string) { rebuilt.WithLabelValues(c).Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer msrv.Close()

	log.Info("catalog-worker started", zap.String("spec", cfg.Policy.Catalog.RebuildSpec))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("catalog-worker stopped")
}
