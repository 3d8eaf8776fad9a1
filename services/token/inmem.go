package tokensvc

import (
	"context"
	"sync"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

type inmemEntry struct {
	value     string
	expiresAt time.Time
}

// InmemStore is a map-backed KVStore for tests and local development.
// Expired entries are dropped lazily on read.
type InmemStore struct {
	mu      sync.Mutex
	entries map[string]inmemEntry
}

var _ core.KVStore = (*InmemStore)(nil)

func NewInmemStore() *InmemStore {
	return &InmemStore{entries: make(map[string]inmemEntry)}
}

func (s *InmemStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = inmemEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InmemStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", core.ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *InmemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
