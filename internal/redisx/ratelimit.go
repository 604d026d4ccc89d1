package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Allow counts one attempt against key and reports whether it fits inside
// limit per window. Shared across instances, unlike a process-local map.
func Allow(ctx context.Context, rdb *redis.Client, key string, limit int64, window time.Duration) (bool, error) {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		_ = rdb.Expire(ctx, key, window).Err()
	}
	return n <= limit, nil
}
