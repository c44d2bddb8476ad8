package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"bizledger/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("consume: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", logger: log.Nop()}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)
		client.recordSuccess()

		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset after success")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should allow a trial call after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be StateHalfOpen after timeout")
		}
		if !client.isCircuitOpen() {
			t.Error("a second caller must wait for the trial call to settle")
		}
	})

	t.Run("only one caller is admitted while half-open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		var admitted int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !client.isCircuitOpen() {
					atomic.AddInt32(&admitted, 1)
				}
			}()
		}
		wg.Wait()
		if admitted != 1 {
			t.Errorf("admitted %d callers, want 1", admitted)
		}

		client.recordSuccess()
		if client.isCircuitOpen() {
			t.Error("a successful trial call should close the circuit")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed trial call should reopen the circuit")
		}
	})
}

func TestPublishCalendarSyncShortCircuits(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", logger: log.Nop()}

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishCalendarSync(context.Background(), "evt-1")
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("PublishCalendarSync() error = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishCalendarSync(ctx, "evt-1"); !errors.Is(err, context.Canceled) {
			t.Errorf("PublishCalendarSync() error = %v, want context.Canceled", err)
		}
	})
}

func TestCalendarSyncMessageJSON(t *testing.T) {
	msg := &CalendarSyncMessage{EventID: "0190c2a4-7e00-7000-8000-000000000001", Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if want := `{"event_id":"0190c2a4-7e00-7000-8000-000000000001","timestamp":"2024-01-01T12:00:00Z"}`; string(body) != want {
		t.Errorf("ToJSON() = %s, want %s", body, want)
	}

	parsed, err := CalendarSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("CalendarSyncMessageFromJSON() error = %v", err)
	}
	if parsed.EventID != msg.EventID || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
}

func TestCalendarSyncMessageRejectsBadInput(t *testing.T) {
	for _, body := range []string{`{"event_id": 12}`, `{"event_id": "  "}`, `{}`, `not json`} {
		if _, err := CalendarSyncMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("CalendarSyncMessageFromJSON(%s) should fail", body)
		}
	}
}

func TestHandleDelivery(t *testing.T) {
	good := []byte(`{"event_id":"evt-1","timestamp":"2024-01-01T12:00:00Z"}`)

	tests := []struct {
		name    string
		body    []byte
		handler Handler
		want    outcome
	}{
		{"success acks", good, func(context.Context, *CalendarSyncMessage) error { return nil }, outcomeAck},
		{"transient failure requeues", good, func(context.Context, *CalendarSyncMessage) error { return errors.New("timeout") }, outcomeRequeue},
		{"unprocessable rejects", good, func(context.Context, *CalendarSyncMessage) error {
			return fmt.Errorf("event evt-1: %w", ErrUnprocessable)
		}, outcomeReject},
		{"malformed body rejects", []byte(`{`), func(context.Context, *CalendarSyncMessage) error {
			t.Error("handler must not run for a malformed body")
			return nil
		}, outcomeReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handleDelivery(context.Background(), tt.body, tt.handler, log.Nop()); got != tt.want {
				t.Errorf("handleDelivery() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingAck struct {
	acked, requeued, rejected int
}

func (r *recordingAck) Ack(bool) error { r.acked++; return nil }

func (r *recordingAck) Nack(_, requeue bool) error {
	if requeue {
		r.requeued++
	} else {
		r.rejected++
	}
	return nil
}

func TestSettle(t *testing.T) {
	var r recordingAck
	for _, o := range []outcome{outcomeAck, outcomeRequeue, outcomeReject, outcomeReject} {
		if err := settle(&r, o); err != nil {
			t.Fatal(err)
		}
	}
	if r.acked != 1 || r.requeued != 1 || r.rejected != 2 {
		t.Errorf("settle counts = %+v", r)
	}
}
