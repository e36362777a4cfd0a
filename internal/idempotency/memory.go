package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deadlines: make(map[string]time.Time)}
}

func (s *MemoryStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines[key] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsMarked(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.deadlines[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(s.deadlines, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(minSweepTTL)
	deleted := 0
	for key, deadline := range s.deadlines {
		if strings.HasPrefix(key, prefix) && deadline.Before(cutoff) {
			delete(s.deadlines, key)
			deleted++
		}
	}
	return deleted, nil
}
