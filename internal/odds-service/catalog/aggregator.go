package catalog

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

type EntryKind string

const (
	EntryHeader EntryKind = "header"
	EntryMarket EntryKind = "market"
)

// SectionHeader abre um bloco de mercados de um mesmo jogo
type SectionHeader struct {
	Category   betting.Category `json:"category"`
	GameName   string           `json:"gameName"`
	LeagueID   int64            `json:"leagueId"`
	LeagueName string           `json:"leagueName"`
	StartTime  time.Time        `json:"startTime"`
	HomeTeam   string           `json:"homeTeam"`
	AwayTeam   string           `json:"awayTeam"`
}

// MarketEntry é uma linha principal com suas variantes (handicaps, linhas alternativas)
type MarketEntry struct {
	betting.MarketRow
	Variants []betting.MarketRow `json:"variants,omitempty"`
}

// Entry é um elemento da sequência exibida: cabeçalho ou mercado
type Entry struct {
	Kind   EntryKind      `json:"kind"`
	Header *SectionHeader `json:"header,omitempty"`
	Market *MarketEntry   `json:"market,omitempty"`
}

// AnchorPolicy escolhe, dentro de um grupo de fixture já ordenado,
// o índice da linha principal à qual os handicaps serão anexados.
type AnchorPolicy func(group []betting.MarketRow) int

// PreferMatchAnchor usa a primeira linha do tipo match; sem match,
// a primeira linha do grupo vira âncora mesmo não sendo match.
func PreferMatchAnchor(group []betting.MarketRow) int {
	for i, r := range group {
		if r.MarketType == betting.MarketMatch {
			return i
		}
	}
	return 0
}

type Aggregator struct {
	Log    *zap.Logger
	Anchor AnchorPolicy
}

// Aggregate é o atalho com a política padrão de âncora
func Aggregate(log *zap.Logger, rows []betting.MarketRow) []Entry {
	return Aggregator{Log: log, Anchor: PreferMatchAnchor}.Aggregate(rows)
}

// Aggregate transforma as linhas cruas de uma categoria na sequência
// cabeçalho/mercado exibida pela UI. Linhas inválidas são descartadas com warning.
func (a Aggregator) Aggregate(rows []betting.MarketRow) []Entry {
	valid := a.dropMalformed(rows)
	SortRows(valid)

	anchor := a.Anchor
	if anchor == nil {
		anchor = PreferMatchAnchor
	}

	groups := GroupByFixture(valid)
	out := make([]Entry, 0, len(valid)+len(groups))
	for _, g := range groups {
		out = appendGroup(out, orderGroup(g, anchor))
	}
	return out
}

func (a Aggregator) dropMalformed(rows []betting.MarketRow) []betting.MarketRow {
	out := make([]betting.MarketRow, 0, len(rows))
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			if a.Log != nil {
				a.Log.Warn("dropping market row",
					zap.Int64("market_id", r.ID),
					zap.String("category", string(r.Category)),
					zap.Error(err),
				)
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRows ordena por (início, nome do tipo de mercado, odd de empate).
// A ordenação é estável: empates preservam a ordem de entrada.
func SortRows(rows []betting.MarketRow) {
	slices.SortStableFunc(rows, func(x, y betting.MarketRow) int {
		if c := x.StartTime.Compare(y.StartTime); c != 0 {
			return c
		}
		if c := cmp.Compare(x.MarketType, y.MarketType); c != 0 {
			return c
		}
		return compareTieOdds(x, y)
	})
}

// sem odd de empate ordena antes
func compareTieOdds(x, y betting.MarketRow) int {
	switch {
	case x.TieOdds == nil && y.TieOdds == nil:
		return 0
	case x.TieOdds == nil:
		return -1
	case y.TieOdds == nil:
		return 1
	}
	return x.TieOdds.Cmp(*y.TieOdds)
}

// GroupByFixture agrupa por fixture mantendo a ordem da primeira aparição
func GroupByFixture(rows []betting.MarketRow) [][]betting.MarketRow {
	idx := make(map[betting.FixtureKey]int)
	var groups [][]betting.MarketRow
	for _, r := range rows {
		k := r.FixtureKey()
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// orderGroup coloca a âncora primeiro, depois os demais match, os handicaps
// e por fim o resto, cada faixa na ordem de entrada.
func orderGroup(g []betting.MarketRow, anchor AnchorPolicy) []betting.MarketRow {
	ai := anchor(g)
	if ai < 0 || ai >= len(g) {
		ai = 0
	}
	out := make([]betting.MarketRow, 0, len(g))
	out = append(out, g[ai])
	for _, pass := range []func(betting.MarketType) bool{
		func(t betting.MarketType) bool { return t == betting.MarketMatch },
		func(t betting.MarketType) bool { return t == betting.MarketHandicap },
		func(t betting.MarketType) bool { return t != betting.MarketMatch && t != betting.MarketHandicap },
	} {
		for i, r := range g {
			if i != ai && pass(r.MarketType) {
				out = append(out, r)
			}
		}
	}
	return out
}

func sameGame(a, b betting.MarketRow) bool {
	return a.Category == b.Category && a.MarketType.GameName() == b.MarketType.GameName()
}

func appendGroup(out []Entry, group []betting.MarketRow) []Entry {
	var primary, last *MarketEntry
	for i, r := range group {
		// handicap do mesmo fixture sempre pendura na âncora
		if i > 0 && r.MarketType == betting.MarketHandicap {
			primary.Variants = append(primary.Variants, r)
			continue
		}
		if last != nil && sameGame(last.MarketRow, r) {
			last.Variants = append(last.Variants, r)
			continue
		}

		out = append(out, Entry{Kind: EntryHeader, Header: &SectionHeader{
			Category:   r.Category,
			GameName:   r.MarketType.GameName(),
			LeagueID:   r.LeagueID,
			LeagueName: r.LeagueName,
			StartTime:  r.StartTime,
			HomeTeam:   r.HomeTeam,
			AwayTeam:   r.AwayTeam,
		}})

		e := &MarketEntry{MarketRow: r}
		out = append(out, Entry{Kind: EntryMarket, Market: e})
		if primary == nil {
			primary = e
		}
		last = e
	}
	return out
}
