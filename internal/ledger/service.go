// Package ledger orchestrates record storage, id assignment and calendar
// sync notifications on top of a store.Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/store"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Publisher announces events that should be mirrored to the calendar.
type Publisher interface {
	PublishCalendarSync(ctx context.Context, eventID string) error
}

// Snapshot is every record, loaded in one go for dashboards.
type Snapshot struct {
	Transactions []core.Transaction `json:"transactions"`
	Events       []core.Event       `json:"events"`
}

type Service struct {
	store     store.Store
	publisher Publisher
	logger    *log.Logger
	newID     func() (string, error)

	// mu serialises read-modify-write for engines without native append.
	mu sync.Mutex
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		newID:  newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// load reads the document, logging and swallowing failures.
func (s *Service) load(ctx context.Context) core.Document {
	doc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load records, serving empty set",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return core.EmptyDocument()
	}
	return doc.Normalize()
}

// ListTransactions returns every transaction, newest first. Transactions on
// the same day keep their storage order. A store that cannot be read yields
// an empty list.
func (s *Service) ListTransactions(ctx context.Context) []core.Transaction {
	txs := s.load(ctx).Transactions
	core.SortNewestFirst(txs)
	return txs
}

// ListEvents returns every event in storage order. A store that cannot be
// read yields an empty list.
func (s *Service) ListEvents(ctx context.Context) []core.Event {
	return s.load(ctx).Events
}

// Snapshot returns transactions (newest first) and events from a single
// load, so both halves come from the same version of the document.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	doc := s.load(ctx)
	core.SortNewestFirst(doc.Transactions)
	return Snapshot{Transactions: doc.Transactions, Events: doc.Events}
}

// AddTransaction validates in, assigns an id and stores it. Nothing is
// written when validation fails or the existing records cannot be read.
func (s *Service) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	t := in.Build("")
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := s.newID()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("generate id: %w", err)
	}
	t.ID = id

	err = s.append(ctx,
		func(a store.Appender) error { return a.AppendTransaction(ctx, t) },
		func(doc *core.Document) { doc.Transactions = append(doc.Transactions, t) })
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store transaction",
			log.NewFields().WithTransaction(t.ID, string(t.Type), t.Amount.String(), t.Category).WithOperation(log.OpAppend).WithError(err).ToSlice()...)
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction stored",
		log.NewFields().WithTransaction(t.ID, string(t.Type), t.Amount.String(), t.Category).WithOperation(log.OpCreate).ToSlice()...)
	return t, nil
}

// AddEvent validates in, assigns an id and stores it. Events flagged for
// calendar sync are announced to the publisher; a publish failure is logged
// and does not undo the stored event.
func (s *Service) AddEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	e := in.Build("")
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	id, err := s.newID()
	if err != nil {
		return core.Event{}, fmt.Errorf("generate id: %w", err)
	}
	e.ID = id

	err = s.append(ctx,
		func(a store.Appender) error { return a.AppendEvent(ctx, e) },
		func(doc *core.Document) { doc.Events = append(doc.Events, e) })
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store event",
			log.NewFields().WithEvent(e.ID, e.Date.String()).WithOperation(log.OpAppend).WithError(err).ToSlice()...)
		return core.Event{}, fmt.Errorf("add event: %w", err)
	}

	s.logger.InfoContext(ctx, "Event stored",
		log.NewFields().WithEvent(e.ID, e.Date.String()).WithOperation(log.OpCreate).ToSlice()...)

	if e.CalendarSync {
		s.publishCalendarSync(ctx, e.ID)
	}
	return e, nil
}

func (s *Service) append(ctx context.Context, native func(store.Appender) error, merge func(*core.Document)) error {
	if a, ok := s.store.(store.Appender); ok {
		return native(a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	doc = doc.Normalize()
	merge(&doc)
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

func (s *Service) publishCalendarSync(ctx context.Context, eventID string) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "No calendar publisher configured, skipping sync",
			log.FieldRecordID, eventID)
		return
	}
	if err := s.publisher.PublishCalendarSync(ctx, eventID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish calendar sync message",
			log.FieldRecordID, eventID, log.FieldOperation, log.OpSync, log.FieldError, err)
	}
}

// FindEvent returns the event with the given id. Unlike the list
// operations it reports load failures.
func (s *Service) FindEvent(ctx context.Context, id string) (core.Event, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return core.Event{}, fmt.Errorf("load records: %w", err)
	}
	for _, e := range doc.Events {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
}

// FindTransaction returns the transaction with the given id, reporting load
// failures like FindEvent.
func (s *Service) FindTransaction(ctx context.Context, id string) (core.Transaction, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load records: %w", err)
	}
	for _, t := range doc.Transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
}

// Close releases the store and, when it holds one, the publisher connection.
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
