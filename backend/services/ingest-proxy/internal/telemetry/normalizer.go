package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
)

// DefaultDeviceID is used when the board does not report its identifier.
const DefaultDeviceID = "MXCHIP_001"

// RawInput is the untyped payload as decoded off the wire. Values may be JSON
// numbers, strings (form encoding) or absent.
type RawInput map[string]any

// ValidationError reports required telemetry fields that are missing or
// non-numeric.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid telemetry: required fields missing or non-numeric: %s", strings.Join(e.Fields, ", "))
}

// Normalize coerces a raw payload into a canonical SensorReading.
//
// Temperature and humidity are required and must parse as numbers; everything
// else is permissive: motion, gyro, angle and sound values default to zero,
// the device id falls back to DefaultDeviceID, and a missing or unparseable
// timestamp is replaced with the current time rather than rejected.
func Normalize(raw RawInput, now time.Time) (*models.SensorReading, error) {
	var missing []string

	temperature, ok := floatField(raw, "temperature")
	if !ok {
		missing = append(missing, "temperature")
	}
	humidity, ok := floatField(raw, "humidity")
	if !ok {
		missing = append(missing, "humidity")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	timestamp, ok := intField(raw, "timestamp")
	if !ok || timestamp == 0 {
		timestamp = now.UnixMilli()
	}

	deviceID := stringField(raw, "device_id")
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	sound, _ := intField(raw, "sound")

	reading := &models.SensorReading{
		DeviceID:  deviceID,
		Timestamp: timestamp,
		Sensors: models.SensorBlock{
			Motion: models.MotionBlock{
				Magnitude: floatOrZero(raw, "motion_magnitude"),
				X:         floatOrZero(raw, "motion_x"),
				Y:         floatOrZero(raw, "motion_y"),
				Z:         floatOrZero(raw, "motion_z"),
				GyroX:     floatOrZero(raw, "gyro_x"),
				GyroY:     floatOrZero(raw, "gyro_y"),
				GyroZ:     floatOrZero(raw, "gyro_z"),
				AngleX:    floatOrZero(raw, "angle_x"),
				AngleY:    floatOrZero(raw, "angle_y"),
				AngleZ:    floatOrZero(raw, "angle_z"),
			},
			Sound:       models.SoundBlock{Raw: sound},
			Temperature: temperature,
			Humidity:    humidity,
		},
		ReceivedAt: now.UTC(),
	}
	return reading, nil
}

func stringField(raw RawInput, key string) string {
	value, ok := raw[key]
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func floatField(raw RawInput, key string) (float64, bool) {
	value, ok := raw[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return finite(v)
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	default:
		return 0, false
	}
}

// finite treats NaN and infinities as non-numeric; they cannot be encoded
// into the store's JSON documents.
func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func floatOrZero(raw RawInput, key string) float64 {
	value, _ := floatField(raw, key)
	return value
}

func intField(raw RawInput, key string) (int64, bool) {
	value, ok := raw[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		parsed, err := v.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
