package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/pitabwire/designer/model"
)

// MemoryStore is an in-memory Store. Suitable for testing and
// single-instance deployments; contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Save stores the JSON form of cfg.
func (s *MemoryStore) Save(_ context.Context, key string, cfg *model.Configuration) error {
	data, err := encode(key, cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = data
	s.mu.Unlock()
	return nil
}

// Load decodes the value stored under key.
func (s *MemoryStore) Load(_ context.Context, key string) (*model.Configuration, error) {
	s.mu.RLock()
	data, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(key)
	}
	return decode(key, data)
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Keys lists the stored keys.
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	slices.Sort(keys)
	return keys, nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(context.Context) error { return nil }

// put stores raw bytes under key, bypassing validation. For testing.
func (s *MemoryStore) put(key string, data []byte) {
	s.mu.Lock()
	s.entries[key] = data
	s.mu.Unlock()
}
