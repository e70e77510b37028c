package catalog

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

var t0 = time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func row(id int64, typ betting.MarketType, start time.Time, league, home, away int64) betting.MarketRow {
	return betting.MarketRow{
		ID:          id,
		Category:    betting.CategoryCross,
		MarketType:  typ,
		LeagueID:    league,
		HomeTeamID:  home,
		AwayTeamID:  away,
		StartTime:   start,
		HomeOdds:    dec("1.85"),
		AwayOdds:    dec("2.05"),
		ResultState: betting.ResultPending,
	}
}

func marketIDs(entries []Entry) []int64 {
	var ids []int64
	for _, e := range entries {
		if e.Kind == EntryMarket {
			ids = append(ids, e.Market.ID)
		}
	}
	return ids
}

func findMarket(entries []Entry, id int64) *MarketEntry {
	for _, e := range entries {
		if e.Kind == EntryMarket && e.Market.ID == id {
			return e.Market
		}
	}
	return nil
}

func TestAggregate_HandicapsNestUnderMatch(t *testing.T) {
	rows := []betting.MarketRow{
		row(3, betting.MarketHandicap, t0, 10, 100, 200),
		row(1, betting.MarketMatch, t0, 10, 100, 200),
		row(2, betting.MarketHandicap, t0, 10, 100, 200),
		row(4, betting.MarketOverUnder, t0, 10, 100, 200),
	}
	rows[1].TieOdds = decp("3.10")

	out := Aggregate(zap.NewNop(), rows)

	got := marketIDs(out)
	if len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Fatalf("top-level markets=%v want [1 4]", got)
	}
	primary := findMarket(out, 1)
	if len(primary.Variants) != 2 {
		t.Fatalf("variants=%d want 2", len(primary.Variants))
	}
	for _, v := range primary.Variants {
		if v.MarketType != betting.MarketHandicap {
			t.Fatalf("variant %d has type %s", v.ID, v.MarketType)
		}
	}
	if out[0].Kind != EntryHeader {
		t.Fatalf("first entry kind=%s want header", out[0].Kind)
	}
}

func TestAggregate_OnePrimaryPerFixture(t *testing.T) {
	later := t0.Add(2 * time.Hour)
	rows := []betting.MarketRow{
		row(1, betting.MarketMatch, t0, 10, 100, 200),
		row(2, betting.MarketHandicap, t0, 10, 100, 200),
		row(3, betting.MarketMatch, t0, 10, 300, 400),
		row(4, betting.MarketHandicap, t0, 10, 300, 400),
		row(5, betting.MarketHandicap, t0, 10, 300, 400),
		row(6, betting.MarketMatch, later, 11, 500, 600),
	}

	out := Aggregate(zap.NewNop(), rows)

	headers := 0
	for _, e := range out {
		if e.Kind == EntryHeader {
			headers++
		}
	}
	if headers != 3 {
		t.Fatalf("headers=%d want 3", headers)
	}
	for _, id := range []int64{2, 4, 5} {
		if findMarket(out, id) != nil {
			t.Fatalf("handicap %d emitted as top-level row", id)
		}
	}
	if n := len(findMarket(out, 3).Variants); n != 2 {
		t.Fatalf("fixture 300v400 variants=%d want 2", n)
	}
	if n := len(findMarket(out, 6).Variants); n != 0 {
		t.Fatalf("fixture 500v600 variants=%d want 0", n)
	}
}

func TestAggregate_SameStartFixturesGetOwnHeaders(t *testing.T) {
	a := row(1, betting.MarketMatch, t0, 10, 100, 200)
	a.HomeTeam, a.AwayTeam = "Lions", "Tigers"
	b := row(2, betting.MarketMatch, t0, 10, 300, 400)
	b.HomeTeam, b.AwayTeam = "Eagles", "Hawks"

	out := Aggregate(zap.NewNop(), []betting.MarketRow{a, b})

	if len(out) != 4 {
		t.Fatalf("entries=%d want 4 (header+market per fixture)", len(out))
	}
	want := []struct {
		home string
		id   int64
	}{{"Lions", 1}, {"Eagles", 2}}
	for i, w := range want {
		h, m := out[2*i], out[2*i+1]
		if h.Kind != EntryHeader || h.Header.HomeTeam != w.home {
			t.Fatalf("entry %d: want header for %s, got %+v", 2*i, w.home, h)
		}
		if m.Kind != EntryMarket || m.Market.ID != w.id {
			t.Fatalf("entry %d: want market %d, got %+v", 2*i+1, w.id, m)
		}
	}
}

func TestAggregate_HandicapOnlyGroupUsesFirstRowAsAnchor(t *testing.T) {
	a := row(7, betting.MarketHandicap, t0, 10, 100, 200)
	a.HandicapLine = decp("-1.5")
	b := row(8, betting.MarketHandicap, t0, 10, 100, 200)
	b.HandicapLine = decp("-0.5")

	out := Aggregate(zap.NewNop(), []betting.MarketRow{a, b})

	got := marketIDs(out)
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("markets=%v want [7]", got)
	}
	if v := findMarket(out, 7).Variants; len(v) != 1 || v[0].ID != 8 {
		t.Fatalf("variants=%v want [8]", v)
	}
}

func TestPreferMatchAnchor(t *testing.T) {
	g := []betting.MarketRow{
		row(1, betting.MarketHandicap, t0, 1, 1, 2),
		row(2, "corner", t0, 1, 1, 2),
		row(3, betting.MarketMatch, t0, 1, 1, 2),
	}
	if i := PreferMatchAnchor(g); i != 2 {
		t.Fatalf("anchor=%d want 2", i)
	}
	if i := PreferMatchAnchor(g[:2]); i != 0 {
		t.Fatalf("anchor without match=%d want 0", i)
	}
}

func TestAggregate_HandicapAttachesToAnchorEvenAcrossGameNames(t *testing.T) {
	// "corner" ordena antes de "handicap" e vira âncora por falta de match
	rows := []betting.MarketRow{
		row(1, betting.MarketHandicap, t0, 10, 100, 200),
		row(2, "corner", t0, 10, 100, 200),
	}
	out := Aggregate(zap.NewNop(), rows)
	got := marketIDs(out)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("markets=%v want [2]", got)
	}
}

func TestAggregate_OrderIndependentOfInput(t *testing.T) {
	var rows []betting.MarketRow
	id := int64(1)
	for f := int64(0); f < 5; f++ {
		start := t0.Add(time.Duration(f) * time.Hour)
		for _, typ := range []betting.MarketType{betting.MarketMatch, betting.MarketHandicap, betting.MarketOverUnder} {
			r := row(id, typ, start, 10+f, 100+f, 200+f)
			r.TieOdds = decp("3.0")
			if typ != betting.MarketMatch {
				r.TieOdds = nil
			}
			rows = append(rows, r)
			id++
		}
	}

	want := flatten(Aggregate(zap.NewNop(), rows))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]betting.MarketRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := flatten(Aggregate(zap.NewNop(), shuffled))
		if len(got) != len(want) {
			t.Fatalf("run %d: len=%d want %d", i, len(got), len(want))
		}
		for k := range want {
			if got[k] != want[k] {
				t.Fatalf("run %d: position %d = %d want %d", i, k, got[k], want[k])
			}
		}
	}
}

// flatten devolve ids de mercados e variantes na ordem exibida (cabeçalho = -1)
func flatten(entries []Entry) []int64 {
	var out []int64
	for _, e := range entries {
		if e.Kind == EntryHeader {
			out = append(out, -1)
			continue
		}
		out = append(out, e.Market.ID)
		for _, v := range e.Market.Variants {
			out = append(out, v.ID)
		}
	}
	return out
}

func TestSortRows_TieOddsTiebreak(t *testing.T) {
	a := row(1, betting.MarketMatch, t0, 1, 1, 2)
	a.TieOdds = decp("3.40")
	b := row(2, betting.MarketMatch, t0, 1, 3, 4)
	b.TieOdds = decp("2.90")
	c := row(3, betting.MarketMatch, t0, 1, 5, 6)

	rows := []betting.MarketRow{a, b, c}
	SortRows(rows)
	if rows[0].ID != 3 || rows[1].ID != 2 || rows[2].ID != 1 {
		t.Fatalf("order=%d,%d,%d want 3,2,1", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}

func TestAggregate_DropsMalformedRows(t *testing.T) {
	bad := row(2, betting.MarketMatch, t0, 0, 100, 200)
	noOdds := row(3, betting.MarketMatch, t0, 10, 300, 400)
	noOdds.HomeOdds = decimal.Zero

	out := Aggregate(zap.NewNop(), []betting.MarketRow{
		row(1, betting.MarketMatch, t0, 10, 100, 200),
		bad,
		noOdds,
	})
	got := marketIDs(out)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("markets=%v want [1]", got)
	}
}

type fakeSource struct {
	rows []betting.MarketRow
	err  error
	from time.Time
	to   time.Time
}

func (f *fakeSource) ListOpenMarkets(_ context.Context, _ betting.Category, from, to time.Time) ([]betting.MarketRow, error) {
	f.from, f.to = from, to
	return f.rows, f.err
}

type fakeStore struct {
	catalogs []Catalog
	odds     int
}

func (f *fakeStore) SetCatalog(_ context.Context, c Catalog) error {
	f.catalogs = append(f.catalogs, c)
	return nil
}

func (f *fakeStore) SetCurrentOdds(_ context.Context, rows []betting.MarketRow) error {
	f.odds += len(rows)
	return nil
}

func TestBuilder_Rebuild(t *testing.T) {
	src := &fakeSource{rows: []betting.MarketRow{
		row(1, betting.MarketMatch, t0, 10, 100, 200),
		row(2, betting.MarketHandicap, t0, 10, 100, 200),
	}}
	st := &fakeStore{}
	b := &Builder{
		Log:    zap.NewNop(),
		Source: src,
		Store:  st,
		Window: 48 * time.Hour,
		Now:    func() time.Time { return t0.Add(-time.Hour) },
	}

	cat, err := b.Rebuild(context.Background(), betting.CategoryCross)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("entries=%d want 2", len(cat.Entries))
	}
	if len(st.catalogs) != 1 || st.odds != 2 {
		t.Fatalf("store calls catalogs=%d odds=%d", len(st.catalogs), st.odds)
	}
	if got := src.to.Sub(src.from); got != 48*time.Hour {
		t.Fatalf("window=%s want 48h", got)
	}
}

func TestBuilder_RebuildSourceError(t *testing.T) {
	boom := errors.New("boom")
	b := &Builder{Log: zap.NewNop(), Source: &fakeSource{err: boom}, Store: &fakeStore{}}
	if _, err := b.Rebuild(context.Background(), betting.CategoryLive); !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}
