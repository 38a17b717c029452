package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/service"
)

// DeviceHandler exposes the registry passthrough endpoints.
type DeviceHandler struct {
	service *service.DeviceService
	logger  *zap.Logger
}

// NewDeviceHandler returns handler.
func NewDeviceHandler(devices *service.DeviceService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{service: devices, logger: logger}
}

type registerRequest struct {
	DeviceID       string  `json:"deviceId"`
	Name           string  `json:"name"`
	AssignedUserID *string `json:"assignedUserId"`
	PatientID      *string `json:"patientId"`
}

// Register handles POST /devices/register.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "deviceId and name are required", "")
		return
	}

	metadata, err := h.service.Register(r.Context(), service.RegisterInput{
		DeviceID:       req.DeviceID,
		Name:           req.Name,
		AssignedUserID: req.AssignedUserID,
		PatientID:      req.PatientID,
	})
	if err != nil {
		h.logger.Error("device registration failed",
			zap.String("device_id", req.DeviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register device", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Device registered successfully",
		"deviceId": metadata.DeviceID,
		"metadata": metadata,
	})
}

type assignRequest struct {
	UserID    string  `json:"userId"`
	PatientID *string `json:"patientId"`
}

// Assign handles POST /devices/{deviceId}/assign.
func (h *DeviceHandler) Assign(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required", "")
		return
	}

	if err := h.service.Assign(r.Context(), deviceID, req.UserID, req.PatientID); err != nil {
		h.logger.Error("device assignment failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to assign device", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Device assigned successfully",
		"deviceId": deviceID,
		"userId":   req.UserID,
	})
}

// Get handles GET /devices/{deviceId}.
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	metadata, err := h.service.Get(r.Context(), deviceID)
	if errors.Is(err, service.ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "device not found", "")
		return
	}
	if err != nil {
		h.logger.Error("device lookup failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch device", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"device":  metadata,
	})
}
