package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betting-engine/internal/odds-service/catalog"
	"github.com/radieske/betting-engine/internal/shared/betting"
	shcache "github.com/radieske/betting-engine/internal/shared/cache"
)

// Cache guarda o catálogo agregado por categoria e as odds correntes por pick
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func keyCatalog(c betting.Category) string { return "catalog:" + string(c) }


func (c *Cache) GetCatalog(ctx context.Context, cat betting.Category) (catalog.Catalog, bool, error) {
	var out catalog.Catalog
	b, err := c.R.Get(ctx, keyCatalog(cat)).Bytes()
	if err == redis.Nil {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	return out, true, json.Unmarshal(b, &out)
}

func (c *Cache) SetCatalog(ctx context.Context, cat catalog.Catalog) error {
	b, err := json.Marshal(cat)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyCatalog(cat.Category), b, c.TTL).Err()
}

// SetCurrentOdds grava a odd de cada pick em pipeline; TTL igual ao do catálogo
func (c *Cache) SetCurrentOdds(ctx context.Context, rows []betting.MarketRow) error {
	if len(rows) == 0 {
		return nil
	}
	pipe := c.R.Pipeline()
	for _, m := range rows {
		for _, p := range []betting.Pick{betting.PickHome, betting.PickTie, betting.PickAway} {
			if odd, ok := m.OddsFor(p); ok {
				pipe.Set(ctx, shcache.KeyCurrentOdds(m.ID, string(p)), odd.String(), c.TTL)
			}
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
