package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/store/memory"
	"bizledger/internal/suggest"
)

var fixedNow = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

type stubSuggester struct {
	categories []string
	err        error
}

func (s stubSuggester) Suggest(_ context.Context, description string) ([]string, error) {
	if strings.TrimSpace(description) == "" {
		return nil, suggest.ErrEmptyDescription
	}
	return s.categories, s.err
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	svc := ledger.New(memory.New(), ledger.WithLogger(log.Nop()))
	base := []Option{WithLogger(log.Nop()), WithClock(func() time.Time { return fixedNow })}
	srv := NewServer(":0", svc, append(base, opts...)...)
	t.Cleanup(srv.rateLimiter.stop)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" && strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz", "").Code)
}

func TestReadyReportsFailedChecks(t *testing.T) {
	srv := newTestServer(t, WithReadinessCheck("store", func(context.Context) error {
		return errors.New("database is locked")
	}))

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","date":"2024-01-05","amount":50,"description":"Lunch","category":"Food"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.Transaction](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/transactions/"+created.ID, rr.Header().Get("Location"))
	assert.Equal(t, "50", created.Amount.String())

	rr = do(t, srv, http.MethodGet, rr.Header().Get("Location"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Lunch", decode[core.Transaction](t, rr).Description)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/transactions/missing", "").Code)

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		"type=revenue&date=2024-01-06&amount=12%2C50&description=Invoice&category=Sales")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	list := decode[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "Invoice", list.Transactions[0].Description, "newest first")
	assert.Equal(t, "12.5", list.Transactions[0].Amount.String())
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad type", `{"type":"gift","date":"2024-01-05","amount":1,"description":"x","category":"y"}`, "type"},
		{"bad date", `{"type":"expense","date":"05/01/2024","amount":1,"description":"x","category":"y"}`, "date"},
		{"zero amount", `{"type":"expense","date":"2024-01-05","amount":0,"description":"x","category":"y"}`, "amount"},
		{"negative amount", `{"type":"expense","date":"2024-01-05","amount":"-3","description":"x","category":"y"}`, "amount"},
		{"blank description", `{"type":"expense","date":"2024-01-05","amount":1,"description":"  ","category":"y"}`, "description"},
		{"blank category", `{"type":"expense","date":"2024-01-05","amount":1,"description":"x","category":""}`, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			body := decode[errorBody](t, rr)
			assert.Equal(t, tt.field, body.Field)

			list := do(t, srv, http.MethodGet, "/api/transactions", "")
			assert.JSONEq(t, `{"transactions":[]}`, list.Body.String())
		})
	}
}

func TestMalformedJSONIsRejected(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventsFilteredByDay(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"date":"2024-02-01","title":"Kickoff"}`,
		`{"date":"2024-02-02","title":"Later","description":"notes"}`,
		`{"date":"2024-02-01T09:30:00+01:00","title":"Standup"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", body).Code)
	}

	got := decode[struct {
		Events []core.Event `json:"events"`
	}](t, do(t, srv, http.MethodGet, "/api/events?day=2024-02-01", ""))
	require.Len(t, got.Events, 2)
	assert.Equal(t, "Kickoff", got.Events[0].Title)
	assert.Equal(t, "", got.Events[0].Description)
	assert.Equal(t, "Standup", got.Events[1].Title)

	rr := do(t, srv, http.MethodGet, "/api/events?day=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateEventRequiresTitle(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/events", `{"date":"2024-02-01","title":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "title", decode[errorBody](t, rr).Field)
}

func seed(t *testing.T, srv *Server) {
	t.Helper()
	for _, body := range []string{
		`{"type":"revenue","date":"2024-02-29","amount":"1200.10","description":"Invoice 7","category":"Sales"}`,
		`{"type":"expense","date":"2024-02-29","amount":0.1,"description":"Pen","category":"Office"}`,
		`{"type":"expense","date":"2024-02-28","amount":0.2,"description":"Paper","category":"Office"}`,
		`{"type":"expense","date":"2023-01-10","amount":40,"description":"Old rent","category":"Rent"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", body).Code)
	}
}

func TestSummaryAndCategories(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"revenue":1200.1,"expenses":40.3,"profit":1159.8}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"categories":[{"name":"Office","amount":0.3},{"name":"Rent","amount":40}]}`, rr.Body.String())
}

func TestSeries(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	got := decode[struct {
		Days   int               `json:"days"`
		Points []core.DailyPoint `json:"points"`
	}](t, do(t, srv, http.MethodGet, "/api/series?days=7", ""))
	require.Equal(t, 7, got.Days)
	require.Len(t, got.Points, 7)
	last := got.Points[6]
	assert.True(t, last.Date.SameDay(core.NewDate(2024, 3, 1)))
	assert.True(t, got.Points[5].Date.SameDay(core.NewDate(2024, 2, 29)))
	assert.Equal(t, "1200.1", got.Points[5].Revenue.String())

	for _, q := range []string{"days=0", "days=367", "days=abc", "end=yesterday"} {
		assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/series?"+q, "").Code, q)
	}
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", `{"date":"2024-03-01","title":"Today"}`).Code)

	got := decode[dashboardResponse](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	assert.Len(t, got.Series, 30)
	assert.Len(t, got.Recent, 4)
	require.Len(t, got.Today, 1)
	assert.Equal(t, "Today", got.Today[0].Title)
	assert.Equal(t, "1159.8", got.Summary.Profit.String())
}

func TestDashboardSelectedDay(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", `{"date":"2024-02-01","title":"Kickoff"}`).Code)

	got := decode[dashboardResponse](t, do(t, srv, http.MethodGet, "/api/dashboard?day=2024-02-01", ""))
	assert.True(t, got.Day.SameDay(core.NewDate(2024, 2, 1)))
	require.Len(t, got.Today, 1)
	assert.Equal(t, "Kickoff", got.Today[0].Title)
	require.Len(t, got.Series, 30)
	assert.True(t, got.Series[29].Date.SameDay(core.NewDate(2024, 3, 1)), "series still ends today")

	got = decode[dashboardResponse](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	assert.Empty(t, got.Today)

	rr := do(t, srv, http.MethodGet, "/api/dashboard?day=tomorrow", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "day", decode[errorBody](t, rr).Field)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="financial-year-report-2024.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", rr.Header().Get("X-Record-Count"))

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"ID", "Type", "Date", "Amount", "Description", "Category"}, records[0])
	for _, rec := range records[1:] {
		assert.NotEqual(t, "Old rent", rec[4], "outside the trailing window")
	}

	rr = do(t, srv, http.MethodGet, "/api/export.csv?days=30", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3", rr.Header().Get("X-Record-Count"))

	// days=1 is today only; nothing was recorded on 2024-03-01
	rr = do(t, srv, http.MethodGet, "/api/export.csv?days=1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/export.csv?days=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-Record-Count"))

	rr = do(t, newTestServer(t), http.MethodGet, "/api/export.csv", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestSuggestCategories(t *testing.T) {
	srv := newTestServer(t, WithSuggester(stubSuggester{categories: []string{"Food", "Meals"}}))

	rr := do(t, srv, http.MethodPost, "/api/suggest-categories", `{"description":"team lunch"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"categories":["Food","Meals"]}`, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/suggest-categories", `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestUnavailable(t *testing.T) {
	srv := newTestServer(t, WithSuggester(stubSuggester{err: suggest.ErrUnavailable}))
	rr := do(t, srv, http.MethodPost, "/api/suggest-categories", `{"description":"lunch"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	srv = newTestServer(t)
	rr = do(t, srv, http.MethodPost, "/api/suggest-categories", `{"description":"lunch"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/summary", "")
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("X-Request-ID", "abc123")
	out := httptest.NewRecorder()
	srv.Handler.ServeHTTP(out, req)
	assert.Equal(t, "abc123", out.Header().Get("X-Request-ID"))
}

func TestPostRateLimit(t *testing.T) {
	srv := newTestServer(t, WithRateLimit(2))

	body := `{"date":"2024-02-01","title":"Kickoff"}`
	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", body).Code)
	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", body).Code)

	rr := do(t, srv, http.MethodPost, "/api/events", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), srv.metrics.rateLimitHits.Load())

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/events", "").Code, "reads are not limited")
}

func TestGuardLogsUnderOwnComponent(t *testing.T) {
	var buf bytes.Buffer
	srv := newTestServer(t, WithRateLimit(1), WithLogger(log.New(log.Config{Output: &buf})))

	body := `{"date":"2024-02-01","title":"Kickoff"}`
	do(t, srv, http.MethodPost, "/api/events", body)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodPost, "/api/events", body).Code)
	assert.Contains(t, logLine(t, &buf, "Rate limit exceeded"), "component=rate_limit")

	buf.Reset()
	do(t, srv, http.MethodGet, "/api/events?file=../../etc/passwd", "")
	assert.Contains(t, logLine(t, &buf, "Suspicious request"), "component=security")
}

func logLine(t *testing.T, buf *bytes.Buffer, msg string) string {
	t.Helper()
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `msg="`+msg+`"`) {
			return line
		}
	}
	t.Fatalf("no %q line in:\n%s", msg, buf.String())
	return ""
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}
