package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check é uma dependência verificada pelo /healthz
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler expõe /metrics e /healthz; qualquer check falhando devolve 503
func Handler(checks ...Check) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		body := healthBody{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				body.Checks[c.Name] = err.Error()
				body.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

// StartMetricsServer sobe o servidor de /metrics e /healthz numa goroutine
func StartMetricsServer(port string, checks ...Check) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
