package http

import (
	"net/http"

	"bizledger/internal/log"
)

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeError(w, http.StatusServiceUnavailable, "category suggestions are not configured", "")
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	categories, err := s.suggester.Suggest(r.Context(), p.Get("description"))
	if err != nil {
		if status := errorStatus(err); status == http.StatusServiceUnavailable {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Category suggestion failed",
				log.FieldOperation, log.OpSuggest, log.FieldError, err)
		}
		s.respondError(w, r, err, log.OpSuggest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
