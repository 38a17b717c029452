package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/service"
)

// StoreTestHandler performs a throwaway write for connectivity diagnosis.
type StoreTestHandler struct {
	service *service.IngestService
	logger  *zap.Logger
}

// NewStoreTestHandler returns handler.
func NewStoreTestHandler(ingest *service.IngestService, logger *zap.Logger) *StoreTestHandler {
	return &StoreTestHandler{service: ingest, logger: logger}
}

// ServeHTTP handles GET /test-store.
func (h *StoreTestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.service.TestWrite(r.Context()); err != nil {
		h.logger.Warn("store connection test failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store connection test failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Store connection test successful",
	})
}
