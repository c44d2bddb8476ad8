// Package memory is an in-process record store for tests and demos.
package memory

import (
	"context"
	"sync"

	"bizledger/internal/core"
	"bizledger/internal/store"
)

type Store struct {
	mu  sync.Mutex
	doc core.Document
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{doc: core.EmptyDocument()}
}

// NewWithDocument seeds the store with a copy of doc.
func NewWithDocument(doc core.Document) *Store {
	return &Store{doc: doc.Normalize().Clone()}
}

func (s *Store) Load(_ context.Context) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone(), nil
}

func (s *Store) Save(_ context.Context, doc core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Normalize().Clone()
	return nil
}

func (s *Store) Close() error { return nil }
