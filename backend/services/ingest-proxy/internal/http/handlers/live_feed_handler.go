package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	feedws "github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/ws"
)

// LiveFeedHandler upgrades dashboard clients onto the per-device live feed.
type LiveFeedHandler struct {
	hub          *feedws.Hub
	writeTimeout time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// NewLiveFeedHandler returns handler.
func NewLiveFeedHandler(hub *feedws.Hub, writeTimeout time.Duration, logger *zap.Logger) *LiveFeedHandler {
	return &LiveFeedHandler{
		hub:          hub,
		writeTimeout: writeTimeout,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles GET /devices/{deviceId}/live.
func (h *LiveFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("live feed upgrade failed",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := feedws.NewSubscriber(deviceID, conn, h.writeTimeout, h.logger, func(s *feedws.Subscriber) {
		h.hub.Remove(s)
		cancel()
	})
	h.hub.Add(sub)

	go sub.Start(ctx)
	h.logger.Info("live feed subscriber connected", zap.String("device_id", deviceID))
}
