package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/ledger"
	"github.com/radieske/betting-engine/internal/wallet-service/dto"
	"github.com/radieske/betting-engine/internal/wallet-service/repo"
	"github.com/radieske/betting-engine/internal/wallet-service/rolling"
)

type memRepo struct {
	balance     map[string]int64
	deposits    map[string]repo.Deposit
	withdrawals []repo.Withdrawal
}

func newMemRepo() *memRepo {
	return &memRepo{balance: map[string]int64{"u1": 1000}, deposits: map[string]repo.Deposit{}}
}

func (m *memRepo) Balance(_ context.Context, uid string) (int64, error) {
	b, ok := m.balance[uid]
	if !ok {
		return 0, ledger.ErrUserNotFound
	}
	return b, nil
}

func (m *memRepo) RequestDeposit(_ context.Context, uid string, money, bonus int64) (repo.Deposit, error) {
	d := repo.Deposit{ID: "d1", UserID: uid, Money: money, BonusPoint: bonus}
	m.deposits[d.ID] = d
	return d, nil
}

func (m *memRepo) ConfirmDeposit(_ context.Context, id string, _ time.Time) (repo.Deposit, int64, error) {
	d, ok := m.deposits[id]
	if !ok {
		return d, 0, repo.ErrNotFound
	}
	if d.Confirmed {
		return d, 0, repo.ErrAlreadyConfirmed
	}
	d.Confirmed = true
	m.deposits[id] = d
	m.balance[d.UserID] += d.Money + d.BonusPoint
	return d, m.balance[d.UserID], nil
}

func (m *memRepo) RequestWithdrawal(_ context.Context, uid string, amount int64, roll rolling.Percentages) (repo.Withdrawal, int64, error) {
	if m.balance[uid] < amount {
		return repo.Withdrawal{}, 0, ledger.ErrInsufficientFunds
	}
	m.balance[uid] -= amount
	wd := repo.Withdrawal{ID: "w1", UserID: uid, Amount: amount, Rolling: roll, Status: "requested"}
	m.withdrawals = append(m.withdrawals, wd)
	return wd, m.balance[uid], nil
}

func (m *memRepo) Ledger(context.Context, string, int) ([]repo.LedgerEntry, error) {
	return []repo.LedgerEntry{}, nil
}

type fixedRoller rolling.Percentages

func (f fixedRoller) ForUser(context.Context, string, time.Time) (rolling.Percentages, error) {
	return rolling.Percentages(f), nil
}

func request(h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDepositConfirmFlow(t *testing.T) {
	m := newMemRepo()
	h := NewServer(zap.NewNop(), m, fixedRoller{}, "secret").Router()
	user := map[string]string{HeaderUserID: "u1"}
	admin := map[string]string{HeaderAdminKey: "secret"}

	if rr := request(h, http.MethodPost, "/wallet/deposits", `{"money":10000,"bonusPoint":500}`, user); rr.Code != http.StatusCreated {
		t.Fatalf("deposit status=%d body=%s", rr.Code, rr.Body)
	}
	if m.balance["u1"] != 1000 {
		t.Fatalf("balance changed before confirmation: %d", m.balance["u1"])
	}

	if rr := request(h, http.MethodPost, "/admin/deposits/d1/confirm", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("confirm without key status=%d", rr.Code)
	}
	rr := request(h, http.MethodPost, "/admin/deposits/d1/confirm", "", admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm status=%d", rr.Code)
	}
	var resp dto.DepositResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Balance == nil || *resp.Balance != 11500 {
		t.Fatalf("balance=%v want 11500", resp.Balance)
	}
	if rr := request(h, http.MethodPost, "/admin/deposits/d1/confirm", "", admin); rr.Code != http.StatusConflict {
		t.Fatalf("second confirm status=%d want 409", rr.Code)
	}
}

func TestWithdrawalStoresRolling(t *testing.T) {
	m := newMemRepo()
	roll := fixedRoller{Sports: 120, MiniGame: 30}
	h := NewServer(zap.NewNop(), m, roll, "").Router()
	user := map[string]string{HeaderUserID: "u1"}

	if rr := request(h, http.MethodPost, "/wallet/withdrawals", `{"amount":400}`, user); rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if len(m.withdrawals) != 1 || m.withdrawals[0].Rolling.Sports != 120 || m.withdrawals[0].Rolling.MiniGame != 30 {
		t.Fatalf("withdrawals=%+v", m.withdrawals)
	}
	if rr := request(h, http.MethodPost, "/wallet/withdrawals", `{"amount":5000}`, user); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overdraw status=%d want 422", rr.Code)
	}
	if rr := request(h, http.MethodPost, "/wallet/withdrawals", `{"amount":0}`, user); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero amount status=%d want 400", rr.Code)
	}
}

func TestRollingAndBalance(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo(), fixedRoller{Slot: 7}, "k").Router()

	rr := request(h, http.MethodGet, "/wallet/rolling", "", map[string]string{HeaderUserID: "u1"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"slot":7`) {
		t.Fatalf("rolling status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := request(h, http.MethodGet, "/admin/rolling?userId=u1", "", map[string]string{HeaderAdminKey: "k"}); rr.Code != http.StatusOK {
		t.Fatalf("admin rolling status=%d", rr.Code)
	}
	if rr := request(h, http.MethodGet, "/wallet", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous wallet status=%d", rr.Code)
	}
	if rr := request(h, http.MethodGet, "/wallet", "", map[string]string{HeaderUserID: "ghost"}); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user status=%d", rr.Code)
	}
}
