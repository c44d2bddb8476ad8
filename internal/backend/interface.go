// Package backend assembles the record store and its collaborators from
// configuration.
package backend

import (
	"context"
	"errors"

	"bizledger/internal/config"
	"bizledger/internal/ledger"
	"bizledger/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// BackendResult is a ready ledger service plus what it needs to shut down.
type BackendResult struct {
	Ledger *ledger.Service
	Store  store.Store
	// Checks holds a readiness check per networked dependency.
	Checks  map[string]ReadinessCheck
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}

// BackendType selects a Record Store engine.
type BackendType string

const (
	JSONBackend     BackendType = config.BackendJSON
	SQLiteBackend   BackendType = config.BackendSQLite
	PostgresBackend BackendType = config.BackendPostgres
	MemoryBackend   BackendType = config.BackendMemory
)

var errNilConfig = errors.New("app config is nil")

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
