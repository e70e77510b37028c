package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testCodec() CookieCodec {
	return CookieCodec{Name: "bet_session", Secret: []byte("test-secret"), TTL: time.Hour}
}

func TestCookieRoundTrip(t *testing.T) {
	c := testCodec()
	ck, err := c.Encode("u1", "tok", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !ck.HttpOnly || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags: %+v", ck)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	uid, tok, err := c.Decode(req)
	if err != nil || uid != "u1" || tok != "tok" {
		t.Fatalf("decode=(%q,%q,%v)", uid, tok, err)
	}

	forged := testCodec()
	forged.Secret = []byte("other")
	if _, _, err := forged.Decode(req); err == nil {
		t.Fatal("cookie signed with another secret accepted")
	}

	expired, _ := c.Encode("u1", "tok", time.Now().Add(-2*time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(expired)
	if _, _, err := c.Decode(req); err == nil {
		t.Fatal("expired cookie accepted")
	}
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard("u1")
	codec := testCodec()

	var seenUser string
	h := Middleware(g, codec, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = r.Header.Get(HeaderUserID)
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ck *http.Cookie, spoof string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/bets", nil)
		if ck != nil {
			req.AddCookie(ck)
		}
		if spoof != "" {
			req.Header.Set(HeaderUserID, spoof)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := call(nil, "u1"); rr.Code != http.StatusUnauthorized || seenUser != "" {
		t.Fatalf("no cookie: status=%d user=%q", rr.Code, seenUser)
	}

	old, _ := g.Issue(ctx, "u1")
	oldCookie, _ := codec.Encode("u1", old, time.Now())
	cur, _ := g.Issue(ctx, "u1")
	curCookie, _ := codec.Encode("u1", cur, time.Now())

	if rr := call(curCookie, "someone-else"); rr.Code != http.StatusOK || seenUser != "u1" {
		t.Fatalf("current session: status=%d user=%q", rr.Code, seenUser)
	}

	seenUser = ""
	rr := call(oldCookie, "")
	if rr.Code != http.StatusUnauthorized || seenUser != "" {
		t.Fatalf("old session: status=%d", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == codec.Name && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("cookie not cleared on session_replaced")
	}

	// mismatch revoga a sessão: os dois lados precisam logar de novo
	for _, ck := range []*http.Cookie{curCookie, oldCookie} {
		if rr := call(ck, ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("after mismatch: status=%d", rr.Code)
		}
	}
}
