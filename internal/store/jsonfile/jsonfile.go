// Package jsonfile keeps the record document in a single JSON file that is
// read and rewritten as a whole on every operation.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"bizledger/internal/core"
	"bizledger/internal/store"
)

// DefaultPath is where the document lives when no path is configured.
const DefaultPath = "data/db.json"

// Store is safe for use by one process. Writers in different processes
// race and the last rename wins.
type Store struct {
	path string

	// mu makes the create-if-missing write in Load and Save mutually
	// exclusive, so initialising never replaces a document saved meanwhile.
	mu sync.Mutex
}

var _ store.Store = (*Store)(nil)

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the location of the JSON document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file is initialised with an empty
// document. A malformed file yields an empty document and an error wrapping
// store.ErrCorrupt; the file itself is left untouched.
func (s *Store) Load(ctx context.Context) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.EmptyDocument(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := core.EmptyDocument()
		if err := s.save(doc); err != nil {
			return doc, fmt.Errorf("initialize %s: %w", s.path, err)
		}
		return doc, nil
	}
	if err != nil {
		return core.EmptyDocument(), fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc core.Document
	if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
		return core.EmptyDocument(), fmt.Errorf("%w: %s: %v", store.ErrCorrupt, s.path, err)
	}
	return doc.Normalize(), nil
}

// Save serialises doc with two-space indentation and replaces the file atomically.
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

func (s *Store) save(doc core.Document) error {
	data, err := json.MarshalIndent(doc.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
