package http

import (
	"net/http"

	"bizledger/internal/core"
	"bizledger/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.ledger.ListTransactions(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	in, err := p.ParseTransactionInput()
	if err != nil {
		s.respondError(w, r, err, log.OpCreate)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.FindTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleListEvents returns every event, or only those on ?day=yyyy-MM-dd.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	day, filtered, err := parseDay(r.URL.Query(), "day")
	if err != nil {
		s.respondError(w, r, err, log.OpList)
		return
	}

	events := s.ledger.ListEvents(r.Context())
	if filtered {
		events = core.OnDay(events, day)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	in, err := p.ParseEventInput()
	if err != nil {
		s.respondError(w, r, err, log.OpCreate)
		return
	}

	ev, err := s.ledger.AddEvent(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
