package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// CounterStore abstracts the fixed-window counter backend so the limiter
// can run against Redis (shared across instances) or an in-process map.
type CounterStore interface {
	// Incr bumps the counter for key, creating the window with the given
	// TTL on first use, and returns the new count and the reset time.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

// Result is the limiter's verdict for one request.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

// Limiter applies fixed-window counting per key. The first request for a
// key opens a window; requests past MaxRequests within it are rejected
// with a retry-after hint.
type Limiter struct {
	store  CounterStore
	scope  string
	window time.Duration
	max    int
}

func NewLimiter(store CounterStore, scope string, window time.Duration, maxRequests int) *Limiter {
	return &Limiter{store: store, scope: scope, window: window, max: maxRequests}
}

func (l *Limiter) Scope() string { return l.scope }

func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, l.key(key), l.window)
	if err != nil {
		return Result{}, err
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if count > int64(l.max) {
		retryAfter := time.Until(resetAt)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt, RetryAfter: retryAfter}, nil
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

func (l *Limiter) key(k string) string {
	return fmt.Sprintf("rate_limit:%s:%s", l.scope, k)
}
