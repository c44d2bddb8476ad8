// Package worker applies queued calendar sync requests.
package worker

import (
	"context"
	"errors"
	"fmt"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
)

// EventSource looks up stored events. *ledger.Service satisfies it.
type EventSource interface {
	FindEvent(ctx context.Context, id string) (core.Event, error)
	ListEvents(ctx context.Context) []core.Event
}

// CalendarInserter creates calendar entries. Inserting the same event twice
// must not create a duplicate.
type CalendarInserter interface {
	InsertEvent(ctx context.Context, e core.Event) (string, error)
}

// CalendarWorker mirrors events flagged for calendar sync.
type CalendarWorker struct {
	events    EventSource
	calendar  CalendarInserter
	permanent func(error) bool
	logger    *log.Logger
}

type Option func(*CalendarWorker)

// WithPermanentErrors classifies calendar errors that retrying cannot fix.
// Messages failing that way are dropped instead of requeued.
func WithPermanentErrors(fn func(error) bool) Option {
	return func(w *CalendarWorker) { w.permanent = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(w *CalendarWorker) { w.logger = l.WithComponent(log.ComponentWorker) }
}

func NewCalendarWorker(events EventSource, calendar CalendarInserter, opts ...Option) *CalendarWorker {
	w := &CalendarWorker{
		events:    events,
		calendar:  calendar,
		permanent: func(error) bool { return false },
		logger:    log.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleSyncMessage processes one calendar sync request. It fits
// amqp.Handler.
func (w *CalendarWorker) HandleSyncMessage(ctx context.Context, msg *amqp.CalendarSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing calendar sync message",
		log.FieldRecordID, msg.EventID, "queued_at", msg.Timestamp)

	event, err := w.events.FindEvent(ctx, msg.EventID)
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %v", amqp.ErrUnprocessable, err)
	}
	if err != nil {
		return fmt.Errorf("find event: %w", err)
	}

	if !event.CalendarSync {
		w.logger.WarnContext(ctx, "Event is not flagged for calendar sync, skipping",
			log.FieldRecordID, event.ID)
		return nil
	}
	return w.sync(ctx, event)
}

func (w *CalendarWorker) sync(ctx context.Context, event core.Event) error {
	ref, err := w.calendar.InsertEvent(ctx, event)
	if err != nil {
		if w.permanent(err) {
			return fmt.Errorf("%w: %v", amqp.ErrUnprocessable, err)
		}
		return fmt.Errorf("insert calendar event: %w", err)
	}
	w.logger.InfoContext(ctx, "Event synced to calendar",
		log.FieldRecordID, event.ID, log.FieldCalendarRef, ref)
	return nil
}

// Resync re-sends every flagged event dated on or after since. It recovers
// from messages lost while the broker or worker was down; entries already
// on the calendar are left as they are.
func (w *CalendarWorker) Resync(ctx context.Context, since core.Date) error {
	var flagged []core.Event
	for _, e := range w.events.ListEvents(ctx) {
		if e.CalendarSync && e.Date.Compare(since) >= 0 {
			flagged = append(flagged, e)
		}
	}
	if len(flagged) == 0 {
		w.logger.InfoContext(ctx, "No calendar events to resync")
		return nil
	}

	synced, failed := 0, 0
	var errs []error
	for _, e := range flagged {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.sync(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to resync event",
				log.FieldRecordID, e.ID, log.FieldError, err)
			errs = append(errs, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Calendar resync completed",
		log.FieldCount, len(flagged), "synced", synced, "errors", failed)
	return errors.Join(errs...)
}
