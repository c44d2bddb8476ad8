package http

import (
	"fmt"
	"net/http"
	"strconv"

	"bizledger/internal/core"
	"bizledger/internal/log"
)

const (
	maxChartWindowDays  = 366
	maxExportWindowDays = 3660
	recentLimit         = 10
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.FinancialSummary(s.ledger.ListTransactions(r.Context())))
}

// handleSeries serves ?days=N of daily totals ending at ?end= (default today).
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days, err := parseDays(query, "days", s.chartWindowDays, maxChartWindowDays)
	if err != nil {
		s.respondError(w, r, err, log.OpList)
		return
	}
	end, ok, err := parseDay(query, "end")
	if err != nil {
		s.respondError(w, r, err, log.OpList)
		return
	}
	if !ok {
		end = s.today()
	}

	points := core.DailySeries(s.ledger.ListTransactions(r.Context()), days, end)
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "points": points})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": core.CategoryBreakdown(s.ledger.ListTransactions(r.Context())),
	})
}

type dashboardResponse struct {
	Summary    core.Summary          `json:"summary"`
	Series     []core.DailyPoint     `json:"series"`
	Categories []core.CategoryAmount `json:"categories"`
	Recent     []core.Transaction    `json:"recentTransactions"`
	Day        core.Date             `json:"day"`
	Today      []core.Event          `json:"todayEvents"`
}

// handleDashboard renders every view from one snapshot of the records.
// Events are those of ?day= (default today); the series always ends today.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	day, ok, err := parseDay(r.URL.Query(), "day")
	if err != nil {
		s.respondError(w, r, err, log.OpList)
		return
	}
	if !ok {
		day = today
	}

	snap := s.ledger.Snapshot(r.Context())
	recent := snap.Transactions
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Summary:    core.FinancialSummary(snap.Transactions),
		Series:     core.DailySeries(snap.Transactions, s.chartWindowDays, today),
		Categories: core.CategoryBreakdown(snap.Transactions),
		Recent:     recent,
		Day:        day,
		Today:      core.OnDay(snap.Events, day),
	})
}

// handleExport streams the trailing ?days= window (inclusive) as CSV. An
// empty window answers 204 with no body.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r.URL.Query(), "days", s.exportWindowDays, maxExportWindowDays)
	if err != nil {
		s.respondError(w, r, err, log.OpExport)
		return
	}

	today := s.today()
	txs := core.Since(s.ledger.ListTransactions(r.Context()), core.TrailingCutoff(today, days))
	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.ExportFilename(today)))
	w.Header().Set("X-Record-Count", strconv.Itoa(len(txs)))
	w.WriteHeader(http.StatusOK)
	if err := core.WriteCSV(w, txs); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export interrupted",
			log.FieldOperation, log.OpExport, log.FieldError, err)
	}
}
