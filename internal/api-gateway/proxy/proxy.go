package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// HeaderUserID só pode ser definido pelo middleware de sessão do gateway
const HeaderUserID = "X-User-ID"

// New cria um reverse proxy para o serviço interno. Em rotas públicas (trusted=false)
// o X-User-ID vindo do cliente é descartado.
func New(log *zap.Logger, target string, trusted bool) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", target)
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	director := rp.Director
	rp.Director = func(r *http.Request) {
		if !trusted {
			r.Header.Del(HeaderUserID)
		}
		director(r)
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("upstream", target), zap.String("path", r.URL.Path), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":"upstream_unavailable","message":"일시적인 오류입니다."}`))
	}
	return rp, nil
}
