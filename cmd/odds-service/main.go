package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	ocache "github.com/radieske/betting-engine/internal/odds-service/cache"
	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	httpapi "github.com/radieske/betting-engine/internal/odds-service/http"
	"github.com/radieske/betting-engine/internal/odds-service/repo"
	"github.com/radieske/betting-engine/internal/odds-service/ws"
	"github.com/radieske/betting-engine/internal/shared/cache"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/db"
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
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	oc := ocache.New(rdb, cfg.Policy.Catalog.CacheTTL)
	// no miss o próprio serviço recalcula; o broadcast fica com o catalog-worker
	builder := &catalog.Builder{
		Log:    log,
		Source: repo.NewReadRepo(pg),
		Store:  oc,
		Window: cfg.Policy.Catalog.Window,
	}

	origins := strings.Split(cfg.AllowedOrigins, ",")
	hub := ws.NewHub(log, func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || slices.Contains(origins, o)
	})
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{Log: log, Cache: oc, Rebuilder: builder, WS: hub.HandleWS}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer msrv.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("odds-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
}
