package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/songgift/checkout/internal/orders"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, 0), mr
}

func TestPutTakeOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := &orders.IntakePayload{FullName: "Ana Lima", RecipientName: "Marcos"}
	require.NoError(t, s.Put(ctx, "tok-1", in))

	out, err := s.TakeOnce(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Lima", out.FullName)
	require.Equal(t, "Marcos", out.RecipientName)

	// consumed on the first take
	_, err = s.TakeOnce(ctx, "tok-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutReplacesWhole(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tok-1", &orders.IntakePayload{FullName: "Ana", CoreMessage: "v1"}))
	require.NoError(t, s.Put(ctx, "tok-1", &orders.IntakePayload{FullName: "Ana Lima"}))

	out, err := s.TakeOnce(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Lima", out.FullName)
	require.Empty(t, out.CoreMessage)
}

func TestTakeOnceUnknownToken(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.TakeOnce(context.Background(), "never-put")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEntryExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tok-1", &orders.IntakePayload{FullName: "Ana"}))
	require.InDelta(t, (2 * time.Hour).Seconds(), mr.TTL("handoff:tok-1").Seconds(), 1)

	mr.FastForward(2*time.Hour + time.Second)
	_, err := s.TakeOnce(ctx, "tok-1")
	require.ErrorIs(t, err, ErrNotFound)
}
