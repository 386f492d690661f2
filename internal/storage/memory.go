package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Ensure MemoryStore implements the TokenStore interface
var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore keeps token records in-process. Used for development and tests;
// records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*TokenRecord
}

// NewMemoryStore creates a new in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*TokenRecord),
	}
}

// Upsert inserts or replaces the record for record.GoogleUserID
func (s *MemoryStore) Upsert(_ context.Context, record *TokenRecord) error {
	if record == nil {
		return fmt.Errorf("token record cannot be nil")
	}
	if record.GoogleUserID == "" {
		return fmt.Errorf("token record requires a google user id")
	}

	copied := *record
	copied.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[copied.GoogleUserID] = &copied
	return nil
}

// Get returns the record for a Google user id, or ErrTokenRecordNotFound
func (s *MemoryStore) Get(_ context.Context, googleUserID string) (*TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[googleUserID]
	if !ok {
		return nil, ErrTokenRecordNotFound
	}
	copied := *record
	return &copied, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
