package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subscriber is one live-feed websocket client watching a single device.
type Subscriber struct {
	deviceID     string
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger
	onClose      func(*Subscriber)
	closeOnce    sync.Once
}

// NewSubscriber wraps an upgraded connection.
func NewSubscriber(deviceID string, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger, onClose func(*Subscriber)) *Subscriber {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Subscriber{
		deviceID:     deviceID,
		ws:           ws,
		send:         make(chan []byte, 16),
		writeTimeout: writeTimeout,
		logger:       logger,
		onClose:      onClose,
	}
}

// DeviceID returns the watched device.
func (s *Subscriber) DeviceID() string {
	return s.deviceID
}

// Start launches the pumps. The read pump exists only to notice the peer
// going away; subscribers never send application data.
func (s *Subscriber) Start(ctx context.Context) {
	go s.writePump(ctx)
	s.readPump(ctx)
}

// Ping sends a control ping with the write deadline applied.
func (s *Subscriber) Ping() error {
	return s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

func (s *Subscriber) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Subscriber) readPump(ctx context.Context) {
	defer s.cleanup()
	s.ws.SetReadLimit(4096)
	s.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.ws.SetPongHandler(func(string) error {
		s.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := s.ws.ReadMessage(); err != nil {
			s.logger.Debug("live feed subscriber disconnected",
				zap.String("device_id", s.deviceID), zap.Error(err))
			return
		}
	}
}

func (s *Subscriber) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.send:
			if !ok {
				return
			}
			s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.cleanup()
				return
			}
		}
	}
}

func (s *Subscriber) cleanup() {
	s.closeOnce.Do(func() {
		_ = s.ws.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}
