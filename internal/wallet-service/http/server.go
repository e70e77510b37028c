package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/ledger"
	"github.com/radieske/betting-engine/internal/wallet-service/dto"
	"github.com/radieske/betting-engine/internal/wallet-service/repo"
	"github.com/radieske/betting-engine/internal/wallet-service/rolling"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderAdminKey = "X-Admin-Key"
)

// Repo define as operações de carteira usadas pelo handler HTTP
type Repo interface {
	Balance(ctx context.Context, userID string) (int64, error)
	RequestDeposit(ctx context.Context, userID string, money, bonus int64) (repo.Deposit, error)
	ConfirmDeposit(ctx context.Context, depositID string, now time.Time) (repo.Deposit, int64, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64, roll rolling.Percentages) (repo.Withdrawal, int64, error)
	Ledger(ctx context.Context, userID string, limit int) ([]repo.LedgerEntry, error)
}

// Roller é satisfeito por *rolling.Calculator
type Roller interface {
	ForUser(ctx context.Context, userID string, now time.Time) (rolling.Percentages, error)
}

// Server expõe endpoints HTTP de carteira
type Server struct {
	log      *zap.Logger
	repo     Repo
	roll     Roller
	adminKey string
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(log *zap.Logger, r Repo, roll Roller, adminKey string) *Server {
	return &Server{log: log, repo: r, roll: roll, adminKey: adminKey, validate: validator.New(), now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/wallet", func(r chi.Router) {
		r.Get("/", s.getWallet)
		r.Get("/ledger", s.getLedger)
		r.Get("/rolling", s.getRolling)
		r.Post("/deposits", s.requestDeposit)
		r.Post("/withdrawals", s.requestWithdrawal)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/deposits/{id}/confirm", s.confirmDeposit)
		r.Get("/rolling", s.adminRolling)
	})
	return r
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(HeaderAdminKey)
		if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.adminKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "관리자 인증이 필요합니다.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "로그인이 필요합니다.")
		return "", false
	}
	return id, true
}

// getWallet retorna o saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	bal, err := s.repo.Balance(r.Context(), uid)
	if err != nil {
		s.fail(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: uid, Balance: bal})
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.repo.Ledger(r.Context(), uid, limit)
	if err != nil {
		s.fail(w, "ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LedgerResponse{Entries: entries})
}

func (s *Server) getRolling(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	s.writeRolling(w, r, uid)
}

func (s *Server) adminRolling(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "userId required")
		return
	}
	s.writeRolling(w, r, uid)
}

func (s *Server) writeRolling(w http.ResponseWriter, r *http.Request, uid string) {
	p, err := s.roll.ForUser(r.Context(), uid, s.now())
	if err != nil {
		s.fail(w, "rolling", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RollingResponse{UserID: uid, Rolling: p})
}

// requestDeposit registra o pedido; o saldo só muda na confirmação
func (s *Server) requestDeposit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.repo.RequestDeposit(r.Context(), uid, req.Money, req.BonusPoint)
	if err != nil {
		s.fail(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.DepositResponse{Deposit: d})
}

func (s *Server) confirmDeposit(w http.ResponseWriter, r *http.Request) {
	d, bal, err := s.repo.ConfirmDeposit(r.Context(), chi.URLParam(r, "id"), s.now())
	if err != nil {
		s.fail(w, "confirm deposit", err)
		return
	}
	s.log.Info("deposit confirmed", zap.String("deposit_id", d.ID), zap.String("user_id", d.UserID), zap.Int64("money", d.Money))
	writeJSON(w, http.StatusOK, dto.DepositResponse{Deposit: d, Balance: &bal})
}

// requestWithdrawal grava o rolling atual junto do pedido; a elegibilidade é decidida fora daqui
func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req dto.WithdrawalRequest
	if !s.decode(w, r, &req) {
		return
	}
	roll, err := s.roll.ForUser(r.Context(), uid, s.now())
	if err != nil {
		s.fail(w, "rolling", err)
		return
	}
	wd, bal, err := s.repo.RequestWithdrawal(r.Context(), uid, req.Amount, roll)
	if err != nil {
		s.fail(w, "withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.WithdrawalResponse{Withdrawal: wd, Balance: bal})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "잘못된 요청입니다.")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// fail traduz erros de repositório em status HTTP
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "대상을 찾을 수 없습니다.")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_funds", "보유 머니가 부족합니다.")
	case errors.Is(err, repo.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, "already_confirmed", "이미 처리된 충전 요청입니다.")
	default:
		s.log.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Code: code, Message: msg})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
