package server

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).Round(time.Second).String(),
		"eventsDropped": s.audit.Dropped(),
	})
}
