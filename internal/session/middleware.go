package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// HeaderUserID é repassado aos serviços internos depois da autenticação
const HeaderUserID = "X-User-ID"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Middleware autentica cada requisição pelo cookie. Falhas limpam o cookie e respondem 401;
// o id de usuário vindo do cliente é sempre descartado.
func Middleware(g *Guard, codec CookieCodec, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(HeaderUserID)

			uid, tok, err := codec.Decode(r)
			if err != nil {
				unauthorized(w, codec, "unauthenticated", "로그인이 필요합니다.")
				return
			}

			if _, err := g.Authenticate(r.Context(), uid, tok); err != nil {
				switch {
				case errors.Is(err, ErrSessionReplaced):
					unauthorized(w, codec, "session_replaced", "다른 곳에서 로그인되어 로그아웃 되었습니다.")
				case errors.Is(err, ErrUnknownUser):
					unauthorized(w, codec, "unauthenticated", "로그인이 필요합니다.")
				default:
					log.Error("session check failed", zap.Error(err))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(errorBody{Code: "internal", Message: "일시적인 오류입니다."})
				}
				return
			}

			r.Header.Set(HeaderUserID, uid)
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, codec CookieCodec, code, msg string) {
	http.SetCookie(w, codec.Clear())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: msg})
}
