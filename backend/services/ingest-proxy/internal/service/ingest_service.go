package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/cache"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/credential"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/observability"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/store"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/telemetry"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/ws"
)

// Write legs of one ingest. The two paths are never updated transactionally,
// so a failed leg is reported, not rolled back.
const (
	LegCurrent = "current"
	LegHistory = "history"
)

// LegFailure records which write leg failed and why.
type LegFailure struct {
	Leg string
	Err error
}

// WriteFailureError aggregates the failed legs of a dual write. The current
// slot and history slot may have diverged; callers get enough detail to say
// which side holds the new value.
type WriteFailureError struct {
	DeviceID  string
	Timestamp int64
	Failures  []LegFailure
}

func (e *WriteFailureError) Error() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "store write failed for device %s (legs: %s)", e.DeviceID, strings.Join(e.FailedLegs(), ", "))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.Leg, f.Err)
	}
	return b.String()
}

// FailedLegs lists the legs that did not reach the store.
func (e *WriteFailureError) FailedLegs() []string {
	legs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		legs = append(legs, f.Leg)
	}
	return legs
}

// IngestResult acknowledges a fully written reading.
type IngestResult struct {
	DeviceID  string
	Timestamp int64
}

// IngestService runs the pipeline: normalize, attach the current credential,
// dual-write, aggregate outcomes. Cache and feed are optional side channels.
type IngestService struct {
	store   *store.Client
	creds   *credential.Manager
	cache   *cache.LatestCache
	feed    *ws.Hub
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewIngestService wires the pipeline. cache, feed and metrics may be nil.
func NewIngestService(storeClient *store.Client, creds *credential.Manager, latest *cache.LatestCache, feed *ws.Hub, metrics *observability.Metrics, logger *zap.Logger) *IngestService {
	return &IngestService{
		store:   storeClient,
		creds:   creds,
		cache:   latest,
		feed:    feed,
		metrics: metrics,
		logger:  logger,
	}
}

// Ingest validates one raw reading and writes it to the current-state slot
// and the history slot. Validation failures short-circuit before any I/O.
// Both writes are attempted even when the first fails, so the returned error
// always names every failed leg.
func (s *IngestService) Ingest(ctx context.Context, raw telemetry.RawInput) (*IngestResult, error) {
	reading, err := telemetry.Normalize(raw, time.Now())
	if err != nil {
		s.metrics.ReadingRejected()
		return nil, err
	}

	cred := s.creds.Current()
	currentPath := fmt.Sprintf("devices/%s/current", reading.DeviceID)
	historyPath := fmt.Sprintf("devices/%s/history/%d", reading.DeviceID, reading.Timestamp)

	start := time.Now()
	var failures []LegFailure
	if err := s.store.Put(ctx, currentPath, reading, cred); err != nil {
		failures = append(failures, LegFailure{Leg: LegCurrent, Err: err})
		s.metrics.WriteFailed(LegCurrent)
	}
	if err := s.store.Put(ctx, historyPath, reading, cred); err != nil {
		failures = append(failures, LegFailure{Leg: LegHistory, Err: err})
		s.metrics.WriteFailed(LegHistory)
	}
	s.metrics.ObserveWriteDuration(time.Since(start))

	if len(failures) > 0 {
		writeErr := &WriteFailureError{
			DeviceID:  reading.DeviceID,
			Timestamp: reading.Timestamp,
			Failures:  failures,
		}
		s.logger.Error("ingest write failed",
			zap.String("device_id", reading.DeviceID),
			zap.Int64("timestamp", reading.Timestamp),
			zap.Strings("failed_legs", writeErr.FailedLegs()))
		return nil, writeErr
	}

	s.metrics.ReadingAccepted()
	if s.cache != nil {
		if err := s.cache.Save(ctx, reading); err != nil {
			s.logger.Warn("latest cache update failed",
				zap.String("device_id", reading.DeviceID), zap.Error(err))
		}
	}
	if s.feed != nil {
		s.feed.Broadcast(reading)
	}

	s.logger.Info("reading ingested",
		zap.String("device_id", reading.DeviceID),
		zap.Int64("timestamp", reading.Timestamp))
	return &IngestResult{DeviceID: reading.DeviceID, Timestamp: reading.Timestamp}, nil
}

// Latest returns the most recent accepted reading for a device, preferring
// the cache and falling back to the store's current slot. A nil reading with
// nil error means the device has never reported.
func (s *IngestService) Latest(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	if s.cache != nil {
		if reading, err := s.cache.Get(ctx, deviceID); err == nil && reading != nil {
			return reading, nil
		} else if err != nil {
			s.logger.Warn("latest cache read failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	body, err := s.store.Get(ctx, fmt.Sprintf("devices/%s/current", deviceID), s.creds.Current())
	if err != nil {
		return nil, err
	}
	if isNullDocument(body) {
		return nil, nil
	}
	var reading models.SensorReading
	if err := json.Unmarshal(body, &reading); err != nil {
		return nil, fmt.Errorf("decode current reading: %w", err)
	}
	return &reading, nil
}

// TestWrite performs a throwaway write to the store's test path and returns
// the raw result, for the diagnostic endpoint.
func (s *IngestService) TestWrite(ctx context.Context) error {
	doc := map[string]any{
		"test":      true,
		"timestamp": time.Now().UnixMilli(),
		"message":   "Test connection from proxy server",
	}
	return s.store.Put(ctx, "test", doc, s.creds.Current())
}

// StoreEndpoint reports the configured store base URL for health output.
func (s *IngestService) StoreEndpoint() string {
	return s.store.BaseURL()
}

func isNullDocument(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null"))
}
