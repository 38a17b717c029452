package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/credential"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/store"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/telemetry"
)

// fakeStore records writes per path and can be told to fail specific paths.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string][]byte
	writes    map[string]int
	failPaths map[string]int
}

func newIngestFakeStore() *fakeStore {
	return &fakeStore{
		docs:      make(map[string][]byte),
		writes:    make(map[string]int),
		failPaths: make(map[string]int),
	}
}

func (f *fakeStore) failPath(path string, status int) {
	f.mu.Lock()
	f.failPaths[path] = status
	f.mu.Unlock()
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()

	if status, ok := f.failPaths[r.URL.Path]; ok {
		http.Error(w, `{"error":"simulated outage"}`, status)
		return
	}

	switch r.Method {
	case http.MethodPut:
		f.docs[r.URL.Path] = body
		f.writes[r.URL.Path]++
		_, _ = w.Write([]byte("{}"))
	case http.MethodGet:
		doc, ok := f.docs[r.URL.Path]
		if !ok {
			_, _ = w.Write([]byte("null"))
			return
		}
		_, _ = w.Write(doc)
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeStore) doc(t *testing.T, path string) models.SensorReading {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.docs[path]
	if !ok {
		t.Fatalf("no document at %s", path)
	}
	var reading models.SensorReading
	if err := json.Unmarshal(data, &reading); err != nil {
		t.Fatalf("document at %s is not a reading: %v", path, err)
	}
	return reading
}

func (f *fakeStore) totalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.writes {
		total += n
	}
	return total
}

func newTestIngestService(t *testing.T) (*IngestService, *fakeStore) {
	t.Helper()
	fake := newIngestFakeStore()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	storeClient := store.NewClient(server.URL, 5*time.Second, logger)
	creds := credential.NewManager("http://unused.invalid", "", time.Minute, logger)
	return NewIngestService(storeClient, creds, nil, nil, nil, logger), fake
}

func validRaw() telemetry.RawInput {
	return telemetry.RawInput{
		"device_id":   "D1",
		"timestamp":   "1000",
		"temperature": "22.5",
		"humidity":    "40",
	}
}

func TestIngestWritesBothSlots(t *testing.T) {
	ingest, fake := newTestIngestService(t)

	result, err := ingest.Ingest(context.Background(), validRaw())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeviceID != "D1" || result.Timestamp != 1000 {
		t.Errorf("result = %+v, want D1/1000", result)
	}

	for _, path := range []string{"/devices/D1/current.json", "/devices/D1/history/1000.json"} {
		reading := fake.doc(t, path)
		if reading.Sensors.Temperature != 22.5 {
			t.Errorf("%s temperature = %v, want 22.5", path, reading.Sensors.Temperature)
		}
		if reading.Sensors.Humidity != 40 {
			t.Errorf("%s humidity = %v, want 40", path, reading.Sensors.Humidity)
		}
		if reading.Sensors.Motion.Magnitude != 0 {
			t.Errorf("%s motion should default to 0", path)
		}
	}
}

func TestIngestRejectsBeforeAnyWrite(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(telemetry.RawInput)
	}{
		{"missing temperature", func(r telemetry.RawInput) { delete(r, "temperature") }},
		{"NaN temperature", func(r telemetry.RawInput) { r["temperature"] = "NaN" }},
		{"infinite humidity", func(r telemetry.RawInput) { r["humidity"] = "Inf" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ingest, fake := newTestIngestService(t)

			raw := validRaw()
			tc.mutate(raw)

			_, err := ingest.Ingest(context.Background(), raw)
			var validation *telemetry.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if fake.totalWrites() != 0 {
				t.Errorf("store saw %d writes, want none on validation failure", fake.totalWrites())
			}
		})
	}
}

func TestIngestReportsHistoryLegFailure(t *testing.T) {
	ingest, fake := newTestIngestService(t)
	fake.failPath("/devices/D1/history/1000.json", http.StatusServiceUnavailable)

	_, err := ingest.Ingest(context.Background(), validRaw())

	var writeFailure *WriteFailureError
	if !errors.As(err, &writeFailure) {
		t.Fatalf("error = %v, want WriteFailureError", err)
	}
	if legs := writeFailure.FailedLegs(); len(legs) != 1 || legs[0] != LegHistory {
		t.Errorf("failed legs = %v, want [history]", legs)
	}
	var rejected *store.RejectedError
	if !errors.As(writeFailure.Failures[0].Err, &rejected) {
		t.Errorf("leg error = %v, want RejectedError", writeFailure.Failures[0].Err)
	}

	// The current slot still holds the new value.
	reading := fake.doc(t, "/devices/D1/current.json")
	if reading.Timestamp != 1000 {
		t.Errorf("current slot timestamp = %d, want 1000", reading.Timestamp)
	}
}

func TestIngestAttemptsHistoryWhenCurrentFails(t *testing.T) {
	ingest, fake := newTestIngestService(t)
	fake.failPath("/devices/D1/current.json", http.StatusInternalServerError)

	_, err := ingest.Ingest(context.Background(), validRaw())

	var writeFailure *WriteFailureError
	if !errors.As(err, &writeFailure) {
		t.Fatalf("error = %v, want WriteFailureError", err)
	}
	if legs := writeFailure.FailedLegs(); len(legs) != 1 || legs[0] != LegCurrent {
		t.Errorf("failed legs = %v, want [current]", legs)
	}

	// History was still written despite the current leg failing.
	reading := fake.doc(t, "/devices/D1/history/1000.json")
	if reading.Timestamp != 1000 {
		t.Errorf("history slot timestamp = %d, want 1000", reading.Timestamp)
	}
}

func TestIngestReportsBothLegsFailed(t *testing.T) {
	ingest, fake := newTestIngestService(t)
	fake.failPath("/devices/D1/current.json", http.StatusServiceUnavailable)
	fake.failPath("/devices/D1/history/1000.json", http.StatusServiceUnavailable)

	_, err := ingest.Ingest(context.Background(), validRaw())

	var writeFailure *WriteFailureError
	if !errors.As(err, &writeFailure) {
		t.Fatalf("error = %v, want WriteFailureError", err)
	}
	legs := strings.Join(writeFailure.FailedLegs(), ",")
	if legs != "current,history" {
		t.Errorf("failed legs = %s, want current,history", legs)
	}
}

func TestIngestIsIdempotentPerTimestamp(t *testing.T) {
	ingest, fake := newTestIngestService(t)

	for i := 0; i < 2; i++ {
		if _, err := ingest.Ingest(context.Background(), validRaw()); err != nil {
			t.Fatalf("ingest %d failed: %v", i, err)
		}
	}

	fake.mu.Lock()
	currentWrites := fake.writes["/devices/D1/current.json"]
	historyWrites := fake.writes["/devices/D1/history/1000.json"]
	historyKeys := 0
	for path := range fake.docs {
		if strings.HasPrefix(path, "/devices/D1/history/") {
			historyKeys++
		}
	}
	fake.mu.Unlock()

	if currentWrites != 2 || historyWrites != 2 {
		t.Errorf("writes = (%d, %d), want both slots written twice", currentWrites, historyWrites)
	}
	if historyKeys != 1 {
		t.Errorf("history keys = %d, want the same key overwritten, not duplicated", historyKeys)
	}
}

func TestLatestFallsBackToStore(t *testing.T) {
	ingest, _ := newTestIngestService(t)

	if _, err := ingest.Ingest(context.Background(), validRaw()); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	reading, err := ingest.Latest(context.Background(), "D1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading == nil || reading.Timestamp != 1000 {
		t.Errorf("latest = %+v, want the ingested reading", reading)
	}

	missing, err := ingest.Latest(context.Background(), "unknown-device")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("latest for unknown device = %+v, want nil", missing)
	}
}
