package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/bet-service/cancel"
	"github.com/radieske/betting-engine/internal/bet-service/dto"
	"github.com/radieske/betting-engine/internal/bet-service/odds"
	"github.com/radieske/betting-engine/internal/bet-service/repo"
	"github.com/radieske/betting-engine/internal/bet-service/slip"
	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/ledger"
	"github.com/radieske/betting-engine/pkg/contracts/events"
)

// HeaderUserID é injetado pelo api-gateway depois de validar a sessão
const HeaderUserID = "X-User-ID"

type Store interface {
	PlaceSlip(ctx context.Context, in repo.PlaceInput) (repo.PlaceResult, error)
	CancelSlip(ctx context.Context, userID, slipID string, pol cancel.Policy, now time.Time) (repo.CancelResult, error)
	ListSlips(ctx context.Context, userID string, f repo.ListFilter) ([]betting.BetSlip, error)
	GetSlip(ctx context.Context, userID, slipID string) (betting.BetSlip, error)
	HideSlip(ctx context.Context, userID, slipID string) error
}

type OddsChecker interface {
	Check(ctx context.Context, c betting.Category, lines []betting.CartLine) ([]odds.Stale, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetCancelled(ctx context.Context, e events.BetCancelled) error
}

// Metrics recebe os contadores do main; campos nil são ignorados
type Metrics struct {
	OnPlaced    func(category string)
	OnCancelled func(category string)
	OnRejected  func(code string)
}

type Server struct {
	log      *zap.Logger
	store    Store
	odds     OddsChecker
	publ     Publisher
	policy   config.Policy
	cancel   cancel.Policy
	validate *validator.Validate
	metrics  Metrics
	now      func() time.Time
}

func NewServer(log *zap.Logger, s Store, o OddsChecker, p Publisher, pol config.Policy, m Metrics) *Server {
	return &Server{
		log:      log,
		store:    s,
		odds:     o,
		publ:     p,
		policy:   pol,
		cancel:   cancel.FromConfig(pol.Cancel),
		validate: validator.New(),
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/bets", func(r chi.Router) {
		r.Post("/", s.placeSlip)
		r.Get("/", s.listSlips)
		r.Get("/{id}", s.getSlip)
		r.Delete("/{id}", s.hideSlip)
		r.Post("/{id}/cancel", s.cancelSlip)
	})
	return r
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "로그인이 필요합니다.")
		return "", false
	}
	return id, true
}

func (s *Server) placeSlip(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req dto.PlaceSlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "잘못된 요청입니다.")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	c, err := betting.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
		return
	}
	lines := req.CartLines(c)

	// pré-check no Redis; a transação relê o banco de qualquer forma
	if stale, err := s.odds.Check(r.Context(), c, lines); err != nil {
		s.log.Warn("odds pre-check skipped", zap.Error(err))
	} else if len(stale) > 0 {
		s.reject("odds_changed")
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Code:    "odds_changed",
			Message: "배당이 변경되었습니다. 다시 확인해 주세요.",
			Stale:   stale,
		})
		return
	}

	res, err := s.store.PlaceSlip(r.Context(), repo.PlaceInput{
		UserID:   uid,
		Category: c,
		Stake:    req.Stake,
		Lines:    lines,
		Policy:   s.policy,
		Now:      s.now(),
	})
	if err != nil {
		s.placeError(w, err)
		return
	}

	sl := res.Slip
	if err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		SlipID:          sl.ID,
		UserID:          sl.UserID,
		Category:        string(sl.Category),
		Legs:            len(sl.Details),
		Stake:           sl.Stake,
		TotalOdds:       sl.TotalOdds.StringFixed(2),
		PotentialPayout: sl.PotentialPayout,
		BalanceAfter:    res.BalanceAfter,
		Memo:            sl.Memo,
	}); err != nil {
		s.log.Warn("bet_placed publish failed", zap.String("slip_id", sl.ID), zap.Error(err))
	}
	if s.metrics.OnPlaced != nil {
		s.metrics.OnPlaced(string(c))
	}
	s.log.Info("slip placed",
		zap.String("slip_id", sl.ID),
		zap.String("user_id", uid),
		zap.String("category", string(c)),
		zap.Int64("stake", sl.Stake),
	)

	writeJSON(w, http.StatusCreated, dto.PlaceSlipResponse{Slip: sl, BalanceAfter: res.BalanceAfter})
}

// placeError traduz os erros da colocação em status HTTP
func (s *Server) placeError(w http.ResponseWriter, err error) {
	status, code, msg := http.StatusInternalServerError, "internal", "일시적인 오류입니다."
	switch {
	case errors.Is(err, slip.ErrUnknownCategory),
		errors.Is(err, slip.ErrNotSlipCategory),
		errors.Is(err, slip.ErrLegCount),
		errors.Is(err, slip.ErrLegCategory),
		errors.Is(err, repo.ErrInvalidPick):
		status, code, msg = http.StatusBadRequest, "invalid_slip", err.Error()
	case errors.Is(err, repo.ErrOddsChanged):
		status, code, msg = http.StatusConflict, "odds_changed", "배당이 변경되었습니다. 다시 확인해 주세요."
	case errors.Is(err, repo.ErrMarketClosed):
		status, code, msg = http.StatusConflict, "market_closed", "배팅이 마감된 경기가 포함되어 있습니다."
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code, msg = http.StatusUnprocessableEntity, "insufficient_funds", "보유 머니가 부족합니다."
	case errors.Is(err, slip.ErrStakeOutOfRange):
		status, code, msg = http.StatusUnprocessableEntity, "stake_out_of_range", "배팅 금액이 한도를 벗어났습니다."
	case errors.Is(err, slip.ErrTooManyLegs):
		status, code, msg = http.StatusUnprocessableEntity, "too_many_legs", "최대 폴더 수를 초과했습니다."
	case errors.Is(err, slip.ErrPayoutLimit):
		status, code, msg = http.StatusUnprocessableEntity, "payout_limit", "최대 당첨금을 초과했습니다."
	case errors.Is(err, ledger.ErrUserNotFound):
		status, code, msg = http.StatusNotFound, "user_not_found", "사용자를 찾을 수 없습니다."
	default:
		s.log.Error("place slip failed", zap.Error(err))
	}
	s.reject(code)
	writeError(w, status, code, msg)
}

func (s *Server) reject(code string) {
	if s.metrics.OnRejected != nil {
		s.metrics.OnRejected(code)
	}
}

func (s *Server) cancelSlip(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	res, err := s.store.CancelSlip(r.Context(), uid, id, s.cancel, s.now())
	switch {
	case errors.Is(err, cancel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "배팅 내역을 찾을 수 없습니다.")
		return
	case errors.Is(err, cancel.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "이미 처리된 배팅입니다.")
		return
	case err != nil:
		s.log.Error("cancel slip failed", zap.String("slip_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
		return
	}
	if res.Refusal.Refused() {
		s.reject(string(res.Refusal))
		writeError(w, http.StatusUnprocessableEntity, string(res.Refusal), res.Refusal.Message())
		return
	}

	if err := s.publ.PublishBetCancelled(r.Context(), events.BetCancelled{
		SlipID:       res.Slip.ID,
		UserID:       uid,
		Category:     string(res.Slip.Category),
		Refunded:     res.Slip.Stake,
		BalanceAfter: res.BalanceAfter,
	}); err != nil {
		s.log.Warn("bet_cancelled publish failed", zap.String("slip_id", id), zap.Error(err))
	}
	if s.metrics.OnCancelled != nil {
		s.metrics.OnCancelled(string(res.Slip.Category))
	}

	writeJSON(w, http.StatusOK, dto.CancelSlipResponse{Slip: res.Slip, BalanceAfter: res.BalanceAfter})
}

func (s *Server) listSlips(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := repo.ListFilter{}
	if c := q.Get("category"); c != "" {
		cat, err := betting.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
			return
		}
		f.Category = cat
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	slips, err := s.store.ListSlips(r.Context(), uid, f)
	if err != nil {
		s.log.Error("list slips failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
		return
	}
	if slips == nil {
		slips = []betting.BetSlip{}
	}
	writeJSON(w, http.StatusOK, dto.SlipListResponse{Slips: slips})
}

func (s *Server) getSlip(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	sl, err := s.store.GetSlip(r.Context(), uid, chi.URLParam(r, "id"))
	if errors.Is(err, cancel.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "배팅 내역을 찾을 수 없습니다.")
		return
	}
	if err != nil {
		s.log.Error("get slip failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) hideSlip(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	err := s.store.HideSlip(r.Context(), uid, chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, cancel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "배팅 내역을 찾을 수 없습니다.")
	case errors.Is(err, repo.ErrStillPending):
		writeError(w, http.StatusUnprocessableEntity, "still_pending", "진행중인 배팅은 삭제할 수 없습니다.")
	default:
		s.log.Error("hide slip failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "일시적인 오류입니다.")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
