package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tubegate/tubegate/pkg/models"
)

// MemoryStore is a process-local key store. It backs the fallback path
// when the durable store is unreachable and doubles as the store for
// tests. All mutations hold the lock since the map has no native
// atomicity.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*models.APIKey
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*models.APIKey),
	}
}

// GetKey retrieves a key by exact match. Returns nil on a miss.
func (s *MemoryStore) GetKey(_ context.Context, key string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.keys[key]
	if !ok {
		return nil, nil
	}

	// Copy out so callers never share the stored struct
	clone := *record
	return &clone, nil
}

// PutKey stores a key record
func (s *MemoryStore) PutKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *key
	s.keys[key.Key] = &clone
	return nil
}

// EnsureKey stores a key record only if it is absent
func (s *MemoryStore) EnsureKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key.Key]; ok {
		return nil
	}

	clone := *key
	s.keys[key.Key] = &clone
	return nil
}

// DeleteKey removes a key. Reports whether it existed.
func (s *MemoryStore) DeleteKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.keys[key]
	delete(s.keys, key)
	return ok, nil
}

// ListKeys returns all keys, newest first
func (s *MemoryStore) ListKeys(_ context.Context) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*models.APIKey, 0, len(s.keys))
	for _, record := range s.keys {
		clone := *record
		keys = append(keys, &clone)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})

	return keys, nil
}

// MarkExpired persists the terminal expired status
func (s *MemoryStore) MarkExpired(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.keys[key]; ok {
		record.Status = models.KeyStatusExpired
	}
	return nil
}

// ResetWindow zeroes the daily counter and advances reset_at. Skipped
// when reset_at already moved forward, so resets never go backward.
func (s *MemoryStore) ResetWindow(_ context.Context, key string, resetAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.keys[key]; ok && record.ResetAt.Before(resetAt) {
		record.DailyRequests = 0
		record.ResetAt = resetAt
	}
	return nil
}

// IncrementUsage bumps both usage counters
func (s *MemoryStore) IncrementUsage(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.keys[key]; ok {
		record.DailyRequests++
		record.TotalRequests++
	}
	return nil
}
