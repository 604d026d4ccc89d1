// Package handoff holds in-progress form submissions between the intake
// form and the payment redirect. Entries live in Redis under the client's
// session token so every API instance observes the same entries; key
// expiry is the TTL sweep.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/redisx"
)

var ErrNotFound = errors.New("handoff entry not found")

type Store struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{Redis: rdb, TTL: ttl}
}

// Put upserts the entry for token. Entries are never mutated in place,
// only replaced whole.
func (s *Store) Put(ctx context.Context, token string, p *orders.IntakePayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode handoff payload: %w", err)
	}
	return s.Redis.Set(ctx, s.key(token), b, s.TTL).Err()
}

// TakeOnce reads and deletes the entry atomically, so two racing readers
// see at most one payload between them.
func (s *Store) TakeOnce(ctx context.Context, token string) (*orders.IntakePayload, error) {
	b, err := s.Redis.GetDel(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p orders.IntakePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode handoff payload: %w", err)
	}
	return &p, nil
}

func (s *Store) key(token string) string {
	return fmt.Sprintf(redisx.KeyHandoff, token)
}
