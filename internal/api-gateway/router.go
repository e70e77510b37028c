package apigateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/api-gateway/auth"
	"github.com/radieske/betting-engine/internal/session"
)

// Upstreams são os handlers dos serviços internos (normalmente reverse proxies)
type Upstreams struct {
	Odds        http.Handler // público
	Bets        http.Handler // exige sessão
	Wallet      http.Handler // exige sessão
	WalletAdmin http.Handler // exige chave de admin
}

type Deps struct {
	Log            *zap.Logger
	Auth           *auth.Handler
	Guard          *session.Guard
	Codec          session.CookieCodec
	AllowedOrigins []string
	Upstreams      Upstreams
}

// NewRouter monta as rotas públicas, autenticadas e administrativas do gateway
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		d.Auth.Routes(r)

		r.Mount("/odds", http.StripPrefix("/api/odds", d.Upstreams.Odds))

		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(d.Guard, d.Codec, d.Log))
			r.Mount("/bets", http.StripPrefix("/api", d.Upstreams.Bets))
			r.Mount("/wallet", http.StripPrefix("/api", d.Upstreams.Wallet))
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.RequireAdmin)
			r.Mount("/admin/deposits", http.StripPrefix("/api", d.Upstreams.WalletAdmin))
			r.Mount("/admin/rolling", http.StripPrefix("/api", d.Upstreams.WalletAdmin))
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
