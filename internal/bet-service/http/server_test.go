package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/bet-service/cancel"
	"github.com/radieske/betting-engine/internal/bet-service/dto"
	"github.com/radieske/betting-engine/internal/bet-service/odds"
	"github.com/radieske/betting-engine/internal/bet-service/repo"
	"github.com/radieske/betting-engine/internal/shared/betting"
	"github.com/radieske/betting-engine/internal/shared/config"
	"github.com/radieske/betting-engine/internal/shared/ledger"
	"github.com/radieske/betting-engine/pkg/contracts/events"
)

type stubStore struct {
	placeErr  error
	cancelRes repo.CancelResult
	cancelErr error
	hideErr   error
	placed    []repo.PlaceInput
}

func (s *stubStore) PlaceSlip(_ context.Context, in repo.PlaceInput) (repo.PlaceResult, error) {
	s.placed = append(s.placed, in)
	if s.placeErr != nil {
		return repo.PlaceResult{}, s.placeErr
	}
	return repo.PlaceResult{
		Slip:         betting.BetSlip{ID: "slip-1", UserID: in.UserID, Category: in.Category, Stake: in.Stake, TotalOdds: decimal.RequireFromString("1.85")},
		BalanceAfter: 90000,
	}, nil
}

func (s *stubStore) CancelSlip(context.Context, string, string, cancel.Policy, time.Time) (repo.CancelResult, error) {
	return s.cancelRes, s.cancelErr
}

func (s *stubStore) ListSlips(context.Context, string, repo.ListFilter) ([]betting.BetSlip, error) {
	return nil, nil
}

func (s *stubStore) GetSlip(_ context.Context, _, id string) (betting.BetSlip, error) {
	return betting.BetSlip{}, cancel.ErrNotFound
}

func (s *stubStore) HideSlip(context.Context, string, string) error { return s.hideErr }

type stubOdds struct{ stale []odds.Stale }

func (o stubOdds) Check(context.Context, betting.Category, []betting.CartLine) ([]odds.Stale, error) {
	return o.stale, nil
}

type stubPub struct {
	placed    []events.BetPlaced
	cancelled []events.BetCancelled
}

func (p *stubPub) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *stubPub) PublishBetCancelled(_ context.Context, e events.BetCancelled) error {
	p.cancelled = append(p.cancelled, e)
	return nil
}

func newTestServer(st *stubStore, o stubOdds, p *stubPub) http.Handler {
	return NewServer(zap.NewNop(), st, o, p, config.DefaultPolicy(), Metrics{}).Router()
}

const validSlip = `{"category":"cross","stake":10000,"lines":[{"marketId":1,"marketType":"match","pick":"home","odds":"1.85"}]}`

func do(h http.Handler, method, path, body string, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestPlaceSlip(t *testing.T) {
	st, pub := &stubStore{}, &stubPub{}
	rr := do(newTestServer(st, stubOdds{}, pub), http.MethodPost, "/bets", validSlip, "u1")

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if len(st.placed) != 1 || st.placed[0].UserID != "u1" || st.placed[0].Category != betting.CategoryCross {
		t.Fatalf("store input=%+v", st.placed)
	}
	if len(pub.placed) != 1 || pub.placed[0].SlipID != "slip-1" || pub.placed[0].TotalOdds != "1.85" {
		t.Fatalf("events=%+v", pub.placed)
	}
}

func TestPlaceSlip_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		user   string
		stale  []odds.Stale
		err    error
		status int
		code   string
	}{
		{"no user", validSlip, "", nil, nil, http.StatusUnauthorized, "unauthenticated"},
		{"bad json", "{", "u1", nil, nil, http.StatusBadRequest, "bad_json"},
		{"no lines", `{"category":"cross","stake":100,"lines":[]}`, "u1", nil, nil, http.StatusBadRequest, "invalid_request"},
		{"zero stake", `{"category":"cross","stake":0,"lines":[{"marketId":1,"pick":"home","odds":"1.5"}]}`, "u1", nil, nil, http.StatusBadRequest, "invalid_request"},
		{"unknown category", strings.Replace(validSlip, "cross", "darts", 1), "u1", nil, nil, http.StatusBadRequest, "unknown_category"},
		{"stale cache", validSlip, "u1", []odds.Stale{{MarketID: 1}}, nil, http.StatusConflict, "odds_changed"},
		{"stale db", validSlip, "u1", nil, fmt.Errorf("leg 0: %w", repo.ErrOddsChanged), http.StatusConflict, "odds_changed"},
		{"funds", validSlip, "u1", nil, ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"boom", validSlip, "u1", nil, fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &stubStore{placeErr: tt.err}
			rr := do(newTestServer(st, stubOdds{stale: tt.stale}, &stubPub{}), http.MethodPost, "/bets", tt.body, tt.user)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body)
			}
			if e := decodeError(t, rr); e.Code != tt.code {
				t.Fatalf("code=%q want %q", e.Code, tt.code)
			}
		})
	}
}

func TestCancelSlip(t *testing.T) {
	tests := []struct {
		name   string
		res    repo.CancelResult
		err    error
		status int
		code   string
	}{
		{"refused too old", repo.CancelResult{Refusal: cancel.TooOld}, nil, http.StatusUnprocessableEntity, string(cancel.TooOld)},
		{"refused limit", repo.CancelResult{Refusal: cancel.DailyLimitReached}, nil, http.StatusUnprocessableEntity, string(cancel.DailyLimitReached)},
		{"conflict", repo.CancelResult{}, cancel.ErrConflict, http.StatusConflict, "conflict"},
		{"not found", repo.CancelResult{}, cancel.ErrNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &stubPub{}
			rr := do(newTestServer(&stubStore{cancelRes: tt.res, cancelErr: tt.err}, stubOdds{}, pub), http.MethodPost, "/bets/s1/cancel", "", "u1")
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Code != tt.code {
				t.Fatalf("code=%q want %q", e.Code, tt.code)
			}
			if tt.res.Refusal.Refused() && e.Message != tt.res.Refusal.Message() {
				t.Fatalf("message=%q", e.Message)
			}
			if len(pub.cancelled) != 0 {
				t.Fatal("event published for failed cancel")
			}
		})
	}

	pub := &stubPub{}
	ok := repo.CancelResult{Slip: betting.BetSlip{ID: "s1", Category: betting.CategoryLive, Stake: 5000, Status: betting.SlipCancelled}, BalanceAfter: 12000}
	rr := do(newTestServer(&stubStore{cancelRes: ok}, stubOdds{}, pub), http.MethodPost, "/bets/s1/cancel", "", "u1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if len(pub.cancelled) != 1 || pub.cancelled[0].Refunded != 5000 {
		t.Fatalf("events=%+v", pub.cancelled)
	}
}

func TestHideSlip(t *testing.T) {
	h := newTestServer(&stubStore{hideErr: repo.ErrStillPending}, stubOdds{}, &stubPub{})
	if rr := do(h, http.MethodDelete, "/bets/s1", "", "u1"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("pending hide status=%d", rr.Code)
	}
	h = newTestServer(&stubStore{}, stubOdds{}, &stubPub{})
	if rr := do(h, http.MethodDelete, "/bets/s1", "", "u1"); rr.Code != http.StatusNoContent {
		t.Fatalf("hide status=%d", rr.Code)
	}
}

func TestListAndGet(t *testing.T) {
	h := newTestServer(&stubStore{}, stubOdds{}, &stubPub{})

	rr := do(h, http.MethodGet, "/bets?category=powerball", "", "u1")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"slips":[]`) {
		t.Fatalf("list status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(h, http.MethodGet, "/bets?category=nope", "", "u1"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad category status=%d", rr.Code)
	}
	if rr := do(h, http.MethodGet, "/bets/missing", "", "u1"); rr.Code != http.StatusNotFound {
		t.Fatalf("get status=%d", rr.Code)
	}
}
