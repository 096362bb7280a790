package redis

import (
	"context"
	"testing"
	"time"
)

// fakeRedis implements the trimmed RedisClient surface in memory.
type fakeRedis struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	expires int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expires++
	f.ttls[key] = expiration
	return nil
}

func (f *fakeRedis) PTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, ok := f.ttls[key]
	if !ok {
		return -1, nil
	}
	return ttl, nil
}

func (f *fakeRedis) Close() error { return nil }

func TestCounterStore_ArmsWindowOnceAndCounts(t *testing.T) {
	client := newFakeRedis()
	store := NewCounterStore(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, resetAt, err := store.Incr(ctx, "rate_limit:user:u1", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
		if resetAt.Before(time.Now()) {
			t.Fatalf("resetAt in the past: %v", resetAt)
		}
	}
	if client.expires != 1 {
		t.Fatalf("window armed %d times, want once", client.expires)
	}
}

func TestCounterStore_RearmsKeyWithoutTTL(t *testing.T) {
	client := newFakeRedis()
	store := NewCounterStore(client)
	ctx := context.Background()

	// Simulate a counter left behind without a TTL.
	client.counts["rate_limit:ip:1.2.3.4"] = 7
	if _, _, err := store.Incr(ctx, "rate_limit:ip:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if client.ttls["rate_limit:ip:1.2.3.4"] != time.Minute {
		t.Fatalf("orphaned counter not re-armed: %v", client.ttls)
	}
}
