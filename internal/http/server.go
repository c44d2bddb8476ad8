// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/suggest"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	ledger      *ledger.Service
	suggester   suggest.Suggester
	logger      *log.Logger
	reqLogger   *log.RequestLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	ready       map[string]ReadinessCheck

	chartWindowDays  int
	exportWindowDays int
	now              func() time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithSuggester enables POST /api/suggest-categories.
func WithSuggester(s suggest.Suggester) Option {
	return func(srv *Server) { srv.suggester = s }
}

func WithLogger(l *log.Logger) Option {
	return func(srv *Server) { srv.logger = l.WithComponent(log.ComponentHTTP) }
}

// WithWindows sets the default chart and export windows in days.
func WithWindows(chartDays, exportDays int) Option {
	return func(srv *Server) {
		srv.chartWindowDays = chartDays
		srv.exportWindowDays = exportDays
	}
}

// WithClock overrides time.Now for "today" in views.
func WithClock(now func() time.Time) Option {
	return func(srv *Server) { srv.now = now }
}

// WithReadinessCheck adds a named dependency to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(srv *Server) { srv.ready[name] = check }
}

// WithRateLimit sets how many POST requests a client may make per minute.
func WithRateLimit(perMinute int) Option {
	return func(srv *Server) { srv.rateLimiter.limit = perMinute }
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:           svc,
		logger:           log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
		rateLimiter:      newRateLimiter(defaultRateLimit),
		metrics:          &securityMetrics{},
		ready:            map[string]ReadinessCheck{},
		chartWindowDays:  30,
		exportWindowDays: 365,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reqLogger = log.NewRequestLogger(s.logger)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withMiddleware(s.handleGetTransaction))
	mux.HandleFunc("GET /api/events", s.withMiddleware(s.handleListEvents))
	mux.HandleFunc("POST /api/events", s.withMiddleware(s.handleCreateEvent))

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /api/series", s.withMiddleware(s.handleSeries))
	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("GET /api/export.csv", s.withMiddleware(s.handleExport))

	mux.HandleFunc("POST /api/suggest-categories", s.withMiddleware(s.handleSuggest))

	return s
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// withMiddleware adds request ids, security headers, POST rate limiting and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	traced := log.Middleware(s.logger, func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(s.guard(next))

	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		traced.ServeHTTP(w, r)
	}
}

// guard runs once the request-scoped logger is in the context.
func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			writeError(rw, http.StatusTooManyRequests, "rate limit exceeded, try again later", "")
		} else {
			next(rw, r)
		}

		s.reqLogger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.WarnContext(ctx, "Readiness check failed", "failed", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
