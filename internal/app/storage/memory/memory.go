// Package memory provides the in-memory CreditStore implementation. Ledger
// state lives for the process lifetime only.
package memory

import (
	"context"
	"sync"

	"github.com/jluxury929-hash/earning-backend/internal/app/domain/credit"
	"github.com/jluxury929-hash/earning-backend/internal/app/storage"
)

// Store is a thread-safe in-memory credit store indexed by canonical key, so
// case-insensitive lookups are O(1) instead of a scan over all entries.
type Store struct {
	mu      sync.RWMutex
	entries map[string]credit.Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]credit.Entry)}
}

func (s *Store) GetEntry(_ context.Context, key string) (credit.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *Store) PutEntry(_ context.Context, key string, entry credit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry
	return nil
}

func (s *Store) ListEntries(_ context.Context) ([]credit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]credit.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, entry)
	}
	return result, nil
}

var _ storage.CreditStore = (*Store)(nil)
