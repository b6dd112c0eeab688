package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Database string `json:"database"`
}

// handleHealth reports the backend and whether the snapshot has loaded.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Ready: h.state.Ready(), Database: "ok"}
	status := http.StatusOK

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
