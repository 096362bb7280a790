package redis

import (
	"context"
	"time"
)

// CounterStore is implemented here with Redis so fixed-window counters can
// be shared across instances; ratelimit.MemoryStore is the process-local
// alternative.

type CounterStore struct {
	client RedisClient
}

func NewCounterStore(client RedisClient) *CounterStore {
	return &CounterStore{client: client}
}

// Incr bumps the window counter for key, creating the window with the
// given TTL on first use, and returns the new count plus the window reset
// time.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	count, err := s.client.Incr(ctx, key)
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window); err != nil {
			return 0, time.Time{}, err
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, key)
	if err != nil || ttl < 0 {
		// Key without TTL (e.g. Expire failed earlier); re-arm the window.
		_ = s.client.Expire(ctx, key, window)
		ttl = window
	}
	return count, time.Now().Add(ttl), nil
}
