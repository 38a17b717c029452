package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
)

// Hub fans accepted readings out to live-feed subscribers, grouped by device.
type Hub struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*Subscriber]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the subscriber registry.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		subscribers:  make(map[string]map[*Subscriber]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers a subscriber for its device feed.
func (h *Hub) Add(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sub.DeviceID()]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subscribers[sub.DeviceID()] = set
	}
	set[sub] = struct{}{}
}

// Remove drops a subscriber.
func (h *Hub) Remove(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sub.DeviceID()]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, sub.DeviceID())
	}
}

// Subscribers reports how many clients watch a device.
func (h *Hub) Subscribers(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[deviceID])
}

// Broadcast pushes a reading to every subscriber of its device. Slow
// subscribers are skipped, not waited on.
func (h *Hub) Broadcast(reading *models.SensorReading) {
	data, err := json.Marshal(reading)
	if err != nil {
		h.logger.Warn("live feed encode failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[reading.DeviceID] {
		if !sub.enqueue(data) {
			h.logger.Debug("live feed subscriber lagging, dropping frame",
				zap.String("device_id", reading.DeviceID))
		}
	}
}

// Start begins the ping loop keeping subscriber connections alive. Pings are
// network writes, so the registry lock is released before any of them run; a
// stalled socket must not hold up Add, Remove or Broadcast.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sub := range h.snapshot() {
				_ = sub.Ping()
			}
		}
	}
}

func (h *Hub) snapshot() []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, set := range h.subscribers {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	return subs
}
