package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/session"
)

const HeaderAdminKey = "X-Admin-Key"

type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	UserID string `json:"userId"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler cuida de login, logout, cadastro e logout forçado
type Handler struct {
	Log      *zap.Logger
	Users    Users
	Guard    *session.Guard
	Codec    session.CookieCodec
	AdminKey string

	validate *validator.Validate
	now      func() time.Time
}

func NewHandler(log *zap.Logger, users Users, g *session.Guard, codec session.CookieCodec, adminKey string) *Handler {
	return &Handler{
		Log:      log,
		Users:    users,
		Guard:    g,
		Codec:    codec,
		AdminKey: adminKey,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Routes monta /auth/* e /admin/users/*
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.With(h.RequireAdmin).Post("/admin/users/{id}/force-logout", h.forceLogout)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var c Credentials
	if !h.decode(w, r, &c) {
		return
	}
	hash, err := HashPassword(c.Password)
	if err != nil {
		h.internal(w, err)
		return
	}
	u, err := h.Users.Create(r.Context(), c.Username, hash)
	if errors.Is(err, ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username_taken", "이미 사용중인 아이디입니다.")
		return
	}
	if err != nil {
		h.internal(w, err)
		return
	}
	h.startSession(w, r.Context(), u.ID, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var c Credentials
	if !h.decode(w, r, &c) {
		return
	}
	u, err := Verify(r.Context(), h.Users, c.Username, c.Password)
	if errors.Is(err, ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, "bad_credentials", "아이디 또는 비밀번호가 올바르지 않습니다.")
		return
	}
	if err != nil {
		h.internal(w, err)
		return
	}
	h.startSession(w, r.Context(), u.ID, http.StatusOK)
}

// startSession emite o token (derrubando a sessão anterior) e grava o cookie
func (h *Handler) startSession(w http.ResponseWriter, ctx context.Context, userID string, status int) {
	tok, err := h.Guard.Issue(ctx, userID)
	if err != nil {
		h.internal(w, err)
		return
	}
	ck, err := h.Codec.Encode(userID, tok, h.now())
	if err != nil {
		h.internal(w, err)
		return
	}
	http.SetCookie(w, ck)
	h.Log.Info("session issued", zap.String("user_id", userID))
	writeJSON(w, status, loginResponse{UserID: userID})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if uid, tok, err := h.Codec.Decode(r); err == nil {
		if err := h.Guard.Logout(r.Context(), uid, tok); err != nil {
			h.Log.Warn("logout failed", zap.String("user_id", uid), zap.Error(err))
		}
	}
	http.SetCookie(w, h.Codec.Clear())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) forceLogout(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	if err := h.Guard.ForceLogout(r.Context(), uid); err != nil {
		h.internal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireAdmin exige o header X-Admin-Key igual à chave configurada
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(HeaderAdminKey)
		if h.AdminKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "관리자 인증이 필요합니다.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "잘못된 요청입니다.")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func (h *Handler) internal(w http.ResponseWriter, err error) {
	h.Log.Error("auth handler failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
