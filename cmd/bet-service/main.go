package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	bhttp "github.com/radieske/betting-engine/internal/bet-service/http"
	"github.com/radieske/betting-engine/internal/bet-service/odds"
	kpub "github.com/radieske/betting-engine/internal/bet-service/producer"
	"github.com/radieske/betting-engine/internal/bet-service/repo"
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

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis (odds correntes para o pré-check)
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetCancelled); err != nil {
			log.Warn("kafka topics", zap.Error(err))
		}
	}

	// Kafka writers (bet_placed / bet_cancelled)
	placedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedW.Close()
	cancelledW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCancelled)
	defer cancelledW.Close()

	placed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_slips_placed_total", Help: "slips aceitos"}, []string{"category"})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_slips_cancelled_total", Help: "slips cancelados"}, []string{"category"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_slip_rejections_total", Help: "recusas por motivo"}, []string{"code"})
	prometheus.MustRegister(placed, cancelled, rejected)

	api := bhttp.NewServer(log,
		repo.NewPostgres(pg, cfg.Location),
		odds.NewValidator(rdb),
		kpub.NewKafkaPublisher(placedW, cancelledW),
		cfg.Policy,
		bhttp.Metrics{
			OnPlaced:    func(c string) { placed.WithLabelValues(c).Inc() },
			OnCancelled: func(c string) { cancelled.WithLabelValues(c).Inc() },
			OnRejected:  func(code string) { rejected.WithLabelValues(code).Inc() },
		},
	)

	msrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer msrv.Close()

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(sctx)
	}()

	log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
}
