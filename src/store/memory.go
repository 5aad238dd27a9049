package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and for serving a loaded document.
type MemoryStore struct {
	mu  sync.RWMutex
	doc *Document
}

// NewMemoryStore creates a new in-memory store holding an empty document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: NewDocument()}
}

// Load returns a copy of the held document.
func (s *MemoryStore) Load(ctx context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Clone(), nil
}

// Save replaces the held document with a copy of doc.
func (s *MemoryStore) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc.Clone()
	return nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
