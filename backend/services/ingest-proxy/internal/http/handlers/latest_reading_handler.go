package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/service"
)

// LatestReadingHandler serves the most recent accepted reading for a device.
type LatestReadingHandler struct {
	service *service.IngestService
	logger  *zap.Logger
}

// NewLatestReadingHandler returns handler.
func NewLatestReadingHandler(ingest *service.IngestService, logger *zap.Logger) *LatestReadingHandler {
	return &LatestReadingHandler{service: ingest, logger: logger}
}

// ServeHTTP handles GET /devices/{deviceId}/latest.
func (h *LatestReadingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	reading, err := h.service.Latest(r.Context(), deviceID)
	if err != nil {
		h.logger.Error("latest reading lookup failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch latest reading", err.Error())
		return
	}
	if reading == nil {
		writeError(w, http.StatusNotFound, "no readings for device", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reading": reading,
	})
}
