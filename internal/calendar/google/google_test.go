package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"bizledger/internal/config"
	"bizledger/internal/core"
	"bizledger/internal/log"
)

type fakeCalendar struct {
	mu      sync.Mutex
	entries map[string]map[string]any
	status  int
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/calendars/team@example.com/events") {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
		return
	}
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend"}}`))
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, _ := body["id"].(string)
	w.Header().Set("Content-Type", "application/json")
	if _, exists := f.entries[id]; exists {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":409,"message":"The requested identifier already exists."}}`))
		return
	}
	f.entries[id] = body
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, fake *fakeCalendar) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "team@example.com", log.Nop(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestInsertEventCreatesAllDayEntry(t *testing.T) {
	fake := &fakeCalendar{entries: map[string]map[string]any{}}
	c := newTestClient(t, fake)

	ev := core.Event{ID: "0190c2a4-7e00-7000-8000-00000000000a", Date: core.NewDate(2024, 2, 29), Title: "Kickoff", Description: "Q1 planning"}
	ref, err := c.InsertEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "bl0190c2a47e0070008000000000000a", ref)

	entry := fake.entries[ref]
	require.NotNil(t, entry)
	assert.Equal(t, "Kickoff", entry["summary"])
	assert.Equal(t, "Q1 planning", entry["description"])
	assert.Equal(t, map[string]any{"date": "2024-02-29"}, entry["start"])
	assert.Equal(t, map[string]any{"date": "2024-03-01"}, entry["end"])
}

func TestInsertEventIsIdempotent(t *testing.T) {
	fake := &fakeCalendar{entries: map[string]map[string]any{}}
	c := newTestClient(t, fake)
	ev := core.Event{ID: "1706745600000", Date: core.NewDate(2024, 2, 1), Title: "Kickoff"}

	first, err := c.InsertEvent(context.Background(), ev)
	require.NoError(t, err)
	second, err := c.InsertEvent(context.Background(), ev)
	require.NoError(t, err, "a conflict on redelivery is success")
	assert.Equal(t, first, second)
	assert.Len(t, fake.entries, 1)
}

func TestInsertEventServerError(t *testing.T) {
	fake := &fakeCalendar{entries: map[string]map[string]any{}, status: http.StatusInternalServerError}
	c := newTestClient(t, fake)

	_, err := c.InsertEvent(context.Background(), core.Event{ID: "e1", Date: core.NewDate(2024, 2, 1), Title: "x"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestCalendarEventID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0190C2A4-7E00-7000-8000-00000000000A", "bl0190c2a47e0070008000000000000a"},
		{"1704441600000", "bl1704441600000"},
		{"id_with/odd chars", "bl" + "69645f776974682f6f6464206368617273"},
		{"wxyz", "bl7778797a"},
	}
	for _, tt := range tests {
		got := CalendarEventID(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		for _, r := range got {
			assert.True(t, r >= '0' && r <= '9' || r >= 'a' && r <= 'v', "%q not base32hex", got)
		}
	}
}

func TestNewFromConfigRequiresCredentials(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{GoogleCalendarID: "primary"}, log.Nop())
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = New(context.Background(), " ", log.Nop(), goption.WithoutAuthentication())
	assert.Error(t, err)
}
