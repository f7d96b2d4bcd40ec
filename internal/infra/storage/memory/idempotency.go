package memory

import (
	"context"
	"sync"
	"time"

	"staybook/internal/app/middleware"
)

type idempotencyEntry struct {
	rec     middleware.IdempotencyRecord
	expires time.Time
}

// IdempotencyStore stores results in memory until they expire.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]idempotencyEntry
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]idempotencyEntry)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[key]
	if !ok || time.Now().After(entry.expires) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return entry.rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = idempotencyEntry{rec: rec, expires: time.Now().Add(ttl)}
	return nil
}

func (s *IdempotencyStore) Claim(_ context.Context, key string, lease time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if entry, ok := s.items[key]; ok && !now.After(entry.expires) {
		return false, nil
	}
	s.items[key] = idempotencyEntry{
		rec:     middleware.IdempotencyRecord{Key: key, OccurredAt: now.UTC(), InFlight: true},
		expires: now.Add(lease),
	}
	return true, nil
}

func (s *IdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.items[key]; ok && entry.rec.InFlight {
		delete(s.items, key)
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
