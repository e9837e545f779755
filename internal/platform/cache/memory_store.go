package cache

import (
	"context"
	"sync"
	"time"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
)

// MemoryStore is a process-local EntryStore. Retention is enforced by
// QuoteCache on read, so entries are kept until replaced or deleted.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entity.Quote
}

var _ EntryStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entity.Quote)}
}

func (s *MemoryStore) Load(_ context.Context, symbol string) (entity.Quote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.entries[symbol]
	return q, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, q entity.Quote, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[q.Symbol] = q
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, symbol)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Kind() string { return "memory" }
