package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/service"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/telemetry"
)

// SensorDataHandler accepts telemetry posted by the boards.
type SensorDataHandler struct {
	service *service.IngestService
	logger  *zap.Logger
}

// NewSensorDataHandler returns handler.
func NewSensorDataHandler(ingest *service.IngestService, logger *zap.Logger) *SensorDataHandler {
	return &SensorDataHandler{service: ingest, logger: logger}
}

// ServeHTTP handles POST /sensor-data. The body may be JSON or form encoded;
// either way it ends up as an untyped map for the normalizer to coerce.
func (h *SensorDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.service.Ingest(r.Context(), raw)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Data sent to store successfully",
		"device_id": result.DeviceID,
		"timestamp": result.Timestamp,
	})
}

func (h *SensorDataHandler) respondError(w http.ResponseWriter, err error) {
	var validation *telemetry.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, "invalid sensor data", validation.Error())
		return
	}

	var writeFailure *service.WriteFailureError
	if errors.As(err, &writeFailure) {
		h.logger.Error("sensor data write failed", zap.Error(writeFailure))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":     false,
			"error":       "failed to send data to store",
			"details":     writeFailure.Error(),
			"failed_legs": writeFailure.FailedLegs(),
		})
		return
	}

	h.logger.Error("sensor data ingest failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to send data to store", err.Error())
}

func decodeRawInput(r *http.Request) (telemetry.RawInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		raw := make(telemetry.RawInput, len(r.PostForm))
		for key := range r.PostForm {
			raw[key] = r.PostForm.Get(key)
		}
		return raw, nil
	}

	raw := make(telemetry.RawInput)
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
