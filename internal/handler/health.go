package handler

import (
	"encoding/json"
	"net/http"
)

type sessionCounter interface {
	Len() int
}

// Health reports liveness and the number of in-memory sessions.
func Health(sessions sessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"sessions": sessions.Len(),
		})
	}
}
