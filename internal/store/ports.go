// Package store defines the Record Store port shared by every persistence engine.
package store

import (
	"context"
	"errors"

	"bizledger/internal/core"
)

var (
	// ErrCorrupt is returned by Load when the persisted document cannot be decoded.
	ErrCorrupt = errors.New("store document is corrupt")
	// ErrDuplicateID is returned when a record id is already taken.
	ErrDuplicateID = errors.New("duplicate record id")
)

// Ports for persistence engines.
type (
	// Store persists the whole record document.
	Store interface {
		// Load returns the full document. A store that does not exist yet is
		// created empty.
		Load(ctx context.Context) (core.Document, error)
		// Save persists doc. Records are never removed once written.
		Save(ctx context.Context, doc core.Document) error
		Close() error
	}

	// Appender is implemented by engines that can add a single record without
	// rewriting the document.
	Appender interface {
		AppendTransaction(ctx context.Context, t core.Transaction) error
		AppendEvent(ctx context.Context, e core.Event) error
	}
)
