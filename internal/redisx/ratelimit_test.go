package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	key := fmt.Sprintf(KeyRateLimit, "coupon", "10.0.0.1")
	for i := 0; i < 5; i++ {
		ok, err := Allow(ctx, rdb, key, 5, 5*time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d should pass", i+1)
	}

	ok, err := Allow(ctx, rdb, key, 5, 5*time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAllowWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	key := fmt.Sprintf(KeyRateLimit, "coupon", "10.0.0.2")
	for i := 0; i < 6; i++ {
		_, err := Allow(ctx, rdb, key, 5, time.Minute)
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute + time.Second)
	ok, err := Allow(ctx, rdb, key, 5, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllowIsolatedKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	a := fmt.Sprintf(KeyRateLimit, "coupon", "10.0.0.3")
	b := fmt.Sprintf(KeyRateLimit, "coupon", "10.0.0.4")
	for i := 0; i < 5; i++ {
		_, err := Allow(ctx, rdb, a, 5, time.Minute)
		require.NoError(t, err)
	}
	ok, err := Allow(ctx, rdb, a, 5, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Allow(ctx, rdb, b, 5, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}
