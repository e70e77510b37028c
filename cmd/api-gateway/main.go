package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	apigateway "github.com/radieske/betting-engine/internal/api-gateway"
	"github.com/radieske/betting-engine/internal/api-gateway/auth"
	"github.com/radieske/betting-engine/internal/api-gateway/proxy"
	"github.com/radieske/betting-engine/internal/session"
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
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// targets
	odds := mustProxy(log, cfg.OddsURL, false)
	bets := mustProxy(log, cfg.BetURL, true)
	wallet := mustProxy(log, cfg.WalletURL, true)
	walletAdmin := mustProxy(log, cfg.WalletURL, false)

	guard := session.NewGuard(session.NewPostgresStore(pg), log)
	codec := session.CookieCodec{
		Name:   cfg.SessionCookie,
		Secret: []byte(cfg.SessionSecret),
		Secure: cfg.CookieSecure,
		TTL:    12 * time.Hour,
	}

	handler := apigateway.NewRouter(apigateway.Deps{
		Log:            log,
		Auth:           auth.NewHandler(log, auth.NewPostgresUsers(pg), guard, codec, cfg.AdminAPIKey),
		Guard:          guard,
		Codec:          codec,
		AllowedOrigins: strings.Split(cfg.AllowedOrigins, ","),
		Upstreams: apigateway.Upstreams{
			Odds:        odds,
			Bets:        bets,
			Wallet:      wallet,
			WalletAdmin: walletAdmin,
		},
	})

	msrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
	)
	defer msrv.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("api-gateway listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func mustProxy(log *zap.Logger, target string, trusted bool) http.Handler {
	rp, err := proxy.New(log, target, trusted)
	if err != nil {
		log.Fatal("proxy", zap.String("target", target), zap.Error(err))
	}
	return rp
}
