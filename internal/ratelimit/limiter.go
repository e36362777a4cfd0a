package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter counts requests against a key within a window.
type Limiter interface {
	// Allow records a request and reports whether it is within the limit.
	// remaining is the number of requests left in the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)

	// Reset clears the counter for the given key.
	Reset(ctx context.Context, key string) error
}

type fixedWindowEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter is an in-process fixed-window limiter. Its state is local to
// the process, so it does not enforce a global limit across replicas; use
// RedisLimiter in multi-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*fixedWindowEntry
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*fixedWindowEntry)}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, exists := l.entries[key]

	if !exists || now.After(entry.expiresAt) {
		l.entries[key] = &fixedWindowEntry{count: 1, expiresAt: now.Add(window)}
		return true, limit - 1, nil
	}

	if entry.count >= limit {
		return false, 0, nil
	}

	entry.count++
	return true, limit - entry.count, nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
