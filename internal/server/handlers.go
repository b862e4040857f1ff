package server

import (
	"encoding/json"
	"net/http"

	"spacewatch/internal/history"
)

// HandleHealth handles health check requests.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"dir":    s.Dir,
	})
}

// HandleHistory returns the parsed run history. The file is re-read on each
// request so a check run in another terminal shows up without a restart.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	log := history.Load(s.HistoryPath)
	stats := log.Stats()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries":      log.Entries,
		"total_checks": stats.TotalChecks,
		"ok_checks":    stats.OkChecks,
		"success_rate": stats.SuccessRate,
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
