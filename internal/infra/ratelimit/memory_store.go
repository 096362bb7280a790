package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a bounded in-process CounterStore. Entries expire with
// their window; when the map grows past maxEntries the expired entries
// are swept and, if still over the cap, the oldest windows are evicted.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	maxEntries int
	now        func() time.Time
}

type memEntry struct {
	count   int64
	resetAt time.Time
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{
		entries:    make(map[string]*memEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !e.resetAt.After(now) {
		if len(s.entries) >= s.maxEntries {
			s.evictLocked(now)
		}
		e = &memEntry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt, nil
}

// evictLocked drops expired windows first, then the soonest-to-reset
// entries until under the cap.
func (s *MemoryStore) evictLocked(now time.Time) {
	for k, e := range s.entries {
		if !e.resetAt.After(now) {
			delete(s.entries, k)
		}
	}
	for len(s.entries) >= s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.entries {
			if oldestKey == "" || e.resetAt.Before(oldest) {
				oldestKey, oldest = k, e.resetAt
			}
		}
		delete(s.entries, oldestKey)
	}
}
