package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		persisted, presented string
		want                 Result
	}{
		{"abc", "abc", Valid},
		{"", "abc", Adoptable},
		{"abc", "xyz", Invalid},
		{"abc", "", Invalid},
		{"", "", Invalid},
		{"revoked:1", "abc", Invalid},
		{"revoked:1", "revoked:1", Invalid},
		{"", "revoked:1", Invalid},
	}
	for _, tt := range tests {
		if got := Classify(tt.persisted, tt.presented); got != tt.want {
			t.Errorf("Classify(%q,%q)=%s want %s", tt.persisted, tt.presented, got, tt.want)
		}
	}
}

func newTestGuard(users ...string) (*Guard, *MemoryStore) {
	st := NewMemoryStore(users...)
	g := NewGuard(st, zap.NewNop())
	n := 0
	g.NewToken = func() string { n++; return fmt.Sprintf("tok-%d", n) }
	return g, st
}

func TestIssueInvalidatesPreviousSession(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard("u1")

	first, _ := g.Issue(ctx, "u1")
	second, _ := g.Issue(ctx, "u1")

	if res, err := g.Authenticate(ctx, "u1", second); err != nil || res != Valid {
		t.Fatalf("current session: res=%s err=%v", res, err)
	}
	if _, err := g.Authenticate(ctx, "u1", first); !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("old session err=%v want ErrSessionReplaced", err)
	}
}

func TestAdoption(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGuard("u1")

	res, err := g.Authenticate(ctx, "u1", "browser-a")
	if err != nil || res != Adoptable {
		t.Fatalf("first request: res=%s err=%v", res, err)
	}
	if tok, _ := st.Token(ctx, "u1"); tok != "browser-a" {
		t.Fatalf("persisted=%q want browser-a", tok)
	}
	if res, err := g.Authenticate(ctx, "u1", "browser-a"); err != nil || res != Valid {
		t.Fatalf("same browser: res=%s err=%v", res, err)
	}
	if _, err := g.Authenticate(ctx, "u1", "browser-b"); !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("other browser err=%v want ErrSessionReplaced", err)
	}
}

func TestMismatchForcesLogout(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGuard("u1")

	cur, _ := g.Issue(ctx, "u1")
	if _, err := g.Authenticate(ctx, "u1", "stale"); !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("err=%v", err)
	}
	if tok, _ := st.Token(ctx, "u1"); !Revoked(tok) {
		t.Fatalf("persisted=%q want revoked", tok)
	}
	// as duas pontas caem; só um login novo volta a valer
	if _, err := g.Authenticate(ctx, "u1", cur); !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("current after mismatch err=%v want ErrSessionReplaced", err)
	}
	fresh, _ := g.Issue(ctx, "u1")
	if res, err := g.Authenticate(ctx, "u1", fresh); err != nil || res != Valid {
		t.Fatalf("after re-login: res=%s err=%v", res, err)
	}
}

func TestSupersededSessionNeverComesBack(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard("u1")

	old, _ := g.Issue(ctx, "u1")
	fresh, _ := g.Issue(ctx, "u1")

	for i := 0; i < 3; i++ {
		res, err := g.Authenticate(ctx, "u1", old)
		if res != Invalid || !errors.Is(err, ErrSessionReplaced) {
			t.Fatalf("old cookie request %d: res=%s err=%v", i+1, res, err)
		}
	}
	if res, err := g.Authenticate(ctx, "u1", fresh); res != Invalid || !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("fresh cookie after duplicate: res=%s err=%v", res, err)
	}
	// o antigo continua recusado mesmo depois do novo login
	again, _ := g.Issue(ctx, "u1")
	if res, _ := g.Authenticate(ctx, "u1", old); res != Invalid {
		t.Fatalf("old cookie after re-login: res=%s", res)
	}
	if res, err := g.Authenticate(ctx, "u1", again); err != nil || res != Valid {
		t.Fatalf("new login: res=%s err=%v", res, err)
	}
}

func TestForceLogout(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGuard("u1")

	tok, _ := g.Issue(ctx, "u1")
	if err := g.ForceLogout(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if p, _ := st.Token(ctx, "u1"); !Revoked(p) {
		t.Fatalf("persisted=%q want revoked", p)
	}
	for i := 0; i < 2; i++ {
		if res, err := g.Authenticate(ctx, "u1", tok); res != Invalid || !errors.Is(err, ErrSessionReplaced) {
			t.Fatalf("cookie after force logout #%d: res=%s err=%v", i+1, res, err)
		}
	}
	next, _ := g.Issue(ctx, "u1")
	if res, err := g.Authenticate(ctx, "u1", next); err != nil || res != Valid {
		t.Fatalf("login after force logout: res=%s err=%v", res, err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard("u1")

	old, _ := g.Issue(ctx, "u1")
	cur, _ := g.Issue(ctx, "u1")

	// logout com token antigo não derruba a sessão corrente
	if err := g.Logout(ctx, "u1", old); err != nil {
		t.Fatal(err)
	}
	if res, err := g.Authenticate(ctx, "u1", cur); err != nil || res != Valid {
		t.Fatalf("current after stale logout: res=%s err=%v", res, err)
	}

	if err := g.Logout(ctx, "u1", cur); err != nil {
		t.Fatal(err)
	}
	if res, _ := g.Authenticate(ctx, "u1", cur); res != Invalid {
		t.Fatalf("cookie replayed after logout: res=%s", res)
	}
}

// adoção concorrente do mesmo token vazio: o segundo a chegar perde a corrida
type racingStore struct {
	*MemoryStore
	adoptedBy string
}

func (r *racingStore) Adopt(ctx context.Context, userID, token string) (bool, error) {
	_ = r.MemoryStore.SetToken(ctx, userID, r.adoptedBy)
	return false, nil
}

func TestAdoptionRace(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{MemoryStore: NewMemoryStore("u1"), adoptedBy: "winner"}
	g := NewGuard(st, zap.NewNop())

	if res, err := g.Authenticate(ctx, "u1", "winner"); err != nil || res != Valid {
		t.Fatalf("same token after lost race: res=%s err=%v", res, err)
	}

	_ = st.MemoryStore.SetToken(ctx, "u1", "")
	if _, err := g.Authenticate(ctx, "u1", "loser"); !errors.Is(err, ErrSessionReplaced) {
		t.Fatalf("loser err=%v want ErrSessionReplaced", err)
	}
}

func TestUnknownUser(t *testing.T) {
	g, _ := newTestGuard()
	if _, err := g.Authenticate(context.Background(), "ghost", "x"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err=%v", err)
	}
}
