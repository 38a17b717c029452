package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports process liveness and the configured store endpoint.
type HealthHandler struct {
	storeEndpoint string
}

// NewHealthHandler returns handler.
func NewHealthHandler(storeEndpoint string) *HealthHandler {
	return &HealthHandler{storeEndpoint: storeEndpoint}
}

// ServeHTTP handles GET /health. Always 200 while the process runs.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"store_url": h.storeEndpoint,
	})
}
