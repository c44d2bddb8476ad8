// Package postgres stores records in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizledger/internal/core"
	"bizledger/internal/store"
)

const (
	insertTransaction = `
		INSERT INTO transactions (id, type, date, amount, description, category)
		VALUES ($1, $2, $3::date, $4::numeric, $5, $6)`
	insertEvent = `
		INSERT INTO events (id, date, title, description, calendar_sync)
		VALUES ($1, $2::date, $3, $4, $5)`
	onConflictDoNothing = ` ON CONFLICT (id) DO NOTHING`

	// pgUniqueViolation is the SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"
)

type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Appender = (*Store)(nil)
)

// New connects to databaseURL and creates the schema if it is missing.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Load(ctx context.Context) (core.Document, error) {
	doc := core.EmptyDocument()

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, to_char(date, 'YYYY-MM-DD'), amount::text, description, category
		FROM transactions ORDER BY seq`)
	if err != nil {
		return doc, fmt.Errorf("query transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return doc, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD'), title, description, calendar_sync
		FROM events ORDER BY seq`)
	if err != nil {
		return doc, fmt.Errorf("query events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return doc, err
	}

	doc.Transactions = txs
	doc.Events = events
	return doc.Normalize(), nil
}

func scanTransaction(row pgx.CollectableRow) (core.Transaction, error) {
	var (
		t            core.Transaction
		typ, day, am string
	)
	if err := row.Scan(&t.ID, &typ, &day, &am, &t.Description, &t.Category); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}
	var err error
	t.Type = core.TransactionType(typ)
	if t.Date, err = core.ParseDate(day); err != nil {
		return t, fmt.Errorf("%w: transaction %s: %v", store.ErrCorrupt, t.ID, err)
	}
	if t.Amount, err = core.ParseMoney(am); err != nil {
		return t, fmt.Errorf("%w: transaction %s: %v", store.ErrCorrupt, t.ID, err)
	}
	return t, nil
}

func scanEvent(row pgx.CollectableRow) (core.Event, error) {
	var (
		e   core.Event
		day string
	)
	if err := row.Scan(&e.ID, &day, &e.Title, &e.Description, &e.CalendarSync); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}
	var err error
	if e.Date, err = core.ParseDate(day); err != nil {
		return e, fmt.Errorf("%w: event %s: %v", store.ErrCorrupt, e.ID, err)
	}
	return e, nil
}

// Save inserts the records of doc that are not stored yet inside a single
// database transaction. Existing rows are left as they are.
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range doc.Transactions {
			batch.Queue(insertTransaction+onConflictDoNothing, transactionArgs(t)...)
		}
		for _, e := range doc.Events {
			batch.Queue(insertEvent+onConflictDoNothing, eventArgs(e)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		return nil
	})
}

func (s *Store) AppendTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := s.pool.Exec(ctx, insertTransaction, transactionArgs(t)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, t.ID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to Postgres", "id", t.ID, "type", t.Type, "amount", t.Amount.String())
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e core.Event) error {
	if _, err := s.pool.Exec(ctx, insertEvent, eventArgs(e)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, e.ID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	slog.InfoContext(ctx, "Event saved to Postgres", "id", e.ID, "date", e.Date.String())
	return nil
}

func transactionArgs(t core.Transaction) []any {
	return []any{t.ID, string(t.Type), t.Date.String(), t.Amount.String(), t.Description, t.Category}
}

func eventArgs(e core.Event) []any {
	return []any{e.ID, e.Date.String(), e.Title, e.Description, e.CalendarSync}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
