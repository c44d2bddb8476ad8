// Package sqlite stores records in a local SQLite database. Rows are read
// back in insertion order, so the document keeps the same shape as the JSON
// file engine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/store"

	_ "modernc.org/sqlite"
)

const (
	insertTransaction = `INSERT INTO transactions (id, type, date, amount, description, category) VALUES (?, ?, ?, ?, ?, ?)`
	insertEvent       = `INSERT INTO events (id, date, title, description, calendar_sync) VALUES (?, ?, ?, ?, ?)`
)

type Store struct {
	db *sql.DB
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Appender = (*Store)(nil)
)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context) (core.Document, error) {
	doc := core.EmptyDocument()

	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return doc, err
	}
	events, err := s.loadEvents(ctx)
	if err != nil {
		return doc, err
	}

	doc.Transactions = txs
	doc.Events = events
	return doc, nil
}

func (s *Store) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, date, amount, description, category FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var (
			t            core.Transaction
			typ, day, am string
		)
		if err := rows.Scan(&t.ID, &typ, &day, &am, &t.Description, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %v", store.ErrCorrupt, t.ID, err)
		}
		if t.Amount, err = core.ParseMoney(am); err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %v", store.ErrCorrupt, t.ID, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) loadEvents(ctx context.Context) ([]core.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, title, description, calendar_sync FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []core.Event{}
	for rows.Next() {
		var (
			e   core.Event
			day string
		)
		if err := rows.Scan(&e.ID, &day, &e.Title, &e.Description, &e.CalendarSync); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", store.ErrCorrupt, e.ID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Save inserts every record of doc that is not stored yet, in document order.
// Existing rows are never updated or removed.
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	orIgnore := func(q string) string { return strings.Replace(q, "INSERT INTO", "INSERT OR IGNORE INTO", 1) }

	for _, t := range doc.Transactions {
		if _, err := tx.ExecContext(ctx, orIgnore(insertTransaction), transactionArgs(t)...); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}
	for _, e := range doc.Events {
		if _, err := tx.ExecContext(ctx, orIgnore(insertEvent), eventArgs(e)...); err != nil {
			return fmt.Errorf("save event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite",
		"transactions", len(doc.Transactions),
		"events", len(doc.Events),
		"duration", time.Since(start))
	return nil
}

func (s *Store) AppendTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := s.db.ExecContext(ctx, insertTransaction, transactionArgs(t)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, t.ID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"date", t.Date.String())
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e core.Event) error {
	if _, err := s.db.ExecContext(ctx, insertEvent, eventArgs(e)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, e.ID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	slog.InfoContext(ctx, "Event saved to SQLite", "id", e.ID, "date", e.Date.String())
	return nil
}

func transactionArgs(t core.Transaction) []any {
	return []any{t.ID, string(t.Type), t.Date.String(), t.Amount.String(), t.Description, t.Category}
}

func eventArgs(e core.Event) []any {
	return []any{e.ID, e.Date.String(), e.Title, e.Description, e.CalendarSync}
}

// sqliteConstraintUnique is the extended result code SQLITE_CONSTRAINT_UNIQUE.
const sqliteConstraintUnique = 2067

func isUniqueViolation(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code() == sqliteConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
