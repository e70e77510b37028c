package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-engine/internal/shared/betting"
)

// Catalog é o snapshot agregado de uma categoria, como é guardado no cache
type Catalog struct {
	Category    betting.Category `json:"category"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Entries     []Entry          `json:"entries"`
}

// Source lê os mercados abertos de uma categoria dentro da janela informada
type Source interface {
	ListOpenMarkets(ctx context.Context, c betting.Category, from, to time.Time) ([]betting.MarketRow, error)
}

type Store interface {
	SetCatalog(ctx context.Context, c Catalog) error
	SetCurrentOdds(ctx context.Context, rows []betting.MarketRow) error
}

type Broadcaster interface {
	PublishCatalog(ctx context.Context, c Catalog) error
}

// Builder recalcula e publica o catálogo de uma categoria
type Builder struct {
	Log         *zap.Logger
	Source      Source
	Store       Store
	Broadcaster Broadcaster // opcional
	Window      time.Duration
	Now         func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Rebuild lê o snapshot, agrega e grava. Falhas de broadcast só geram warning.
func (b *Builder) Rebuild(ctx context.Context, c betting.Category) (Catalog, error) {
	now := b.now()
	rows, err := b.Source.ListOpenMarkets(ctx, c, now, now.Add(b.Window))
	if err != nil {
		return Catalog{}, fmt.Errorf("list markets %s: %w", c, err)
	}

	cat := Catalog{
		Category:    c,
		GeneratedAt: now.UTC(),
		Entries:     Aggregate(b.Log, rows),
	}

	if err := b.Store.SetCatalog(ctx, cat); err != nil {
		return Catalog{}, fmt.Errorf("store catalog %s: %w", c, err)
	}
	if err := b.Store.SetCurrentOdds(ctx, rows); err != nil {
		b.Log.Warn("current odds not cached", zap.String("category", string(c)), zap.Error(err))
	}
	if b.Broadcaster != nil {
		if err := b.Broadcaster.PublishCatalog(ctx, cat); err != nil {
			b.Log.Warn("catalog broadcast failed", zap.String("category", string(c)), zap.Error(err))
		}
	}

	b.Log.Debug("catalog rebuilt",
		zap.String("category", string(c)),
		zap.Int("rows", len(rows)),
		zap.Int("entries", len(cat.Entries)),
	)
	return cat, nil
}

// SportsCategories são as categorias que têm catálogo de odds
var SportsCategories = []betting.Category{
	betting.CategoryCross, betting.CategorySpecial, betting.CategoryLive,
}
