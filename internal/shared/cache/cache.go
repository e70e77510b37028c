package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// KeyCurrentOdds é a chave da odd corrente de um pick.
// Gravada pelo catalog-worker, lida pelo pré-check do bet-service.
func KeyCurrentOdds(marketID int64, pick string) string {
	return fmt.Sprintf("odds:%d:%s", marketID, pick)
}
