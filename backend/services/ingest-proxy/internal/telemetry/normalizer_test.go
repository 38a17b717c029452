package telemetry

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

var testNow = time.UnixMilli(1_700_000_000_000).UTC()

func validInput() RawInput {
	return RawInput{
		"device_id":   "D1",
		"timestamp":   "1000",
		"temperature": "22.5",
		"humidity":    "40",
	}
}

func TestNormalizeValidInput(t *testing.T) {
	reading, err := Normalize(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reading.DeviceID != "D1" {
		t.Errorf("device id = %q, want D1", reading.DeviceID)
	}
	if reading.Timestamp != 1000 {
		t.Errorf("timestamp = %d, want 1000", reading.Timestamp)
	}
	if reading.Sensors.Temperature != 22.5 {
		t.Errorf("temperature = %v, want 22.5", reading.Sensors.Temperature)
	}
	if reading.Sensors.Humidity != 40 {
		t.Errorf("humidity = %v, want 40", reading.Sensors.Humidity)
	}
	if !reading.ReceivedAt.Equal(testNow) {
		t.Errorf("received at = %v, want %v", reading.ReceivedAt, testNow)
	}

	motion := reading.Sensors.Motion
	for name, got := range map[string]float64{
		"magnitude": motion.Magnitude,
		"x":         motion.X,
		"gyro_z":    motion.GyroZ,
		"angle_y":   motion.AngleY,
	} {
		if got != 0 {
			t.Errorf("motion %s = %v, want 0 default", name, got)
		}
	}
	if reading.Sensors.Sound.Raw != 0 {
		t.Errorf("sound = %d, want 0 default", reading.Sensors.Sound.Raw)
	}
}

func TestNormalizeJSONNumbers(t *testing.T) {
	raw := RawInput{
		"device_id":        "D2",
		"timestamp":        json.Number("2000"),
		"temperature":      json.Number("19.25"),
		"humidity":         json.Number("55"),
		"motion_magnitude": json.Number("1.5"),
		"sound":            json.Number("128"),
	}

	reading, err := Normalize(raw, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Timestamp != 2000 {
		t.Errorf("timestamp = %d, want 2000", reading.Timestamp)
	}
	if reading.Sensors.Temperature != 19.25 {
		t.Errorf("temperature = %v, want 19.25", reading.Sensors.Temperature)
	}
	if reading.Sensors.Motion.Magnitude != 1.5 {
		t.Errorf("magnitude = %v, want 1.5", reading.Sensors.Motion.Magnitude)
	}
	if reading.Sensors.Sound.Raw != 128 {
		t.Errorf("sound = %d, want 128", reading.Sensors.Sound.Raw)
	}
}

func TestNormalizeRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(RawInput)
		missing string
	}{
		{"missing temperature", func(r RawInput) { delete(r, "temperature") }, "temperature"},
		{"missing humidity", func(r RawInput) { delete(r, "humidity") }, "humidity"},
		{"non-numeric temperature", func(r RawInput) { r["temperature"] = "warm" }, "temperature"},
		{"non-numeric humidity", func(r RawInput) { r["humidity"] = "damp" }, "humidity"},
		{"NaN temperature", func(r RawInput) { r["temperature"] = "NaN" }, "temperature"},
		{"infinite temperature", func(r RawInput) { r["temperature"] = "+Inf" }, "temperature"},
		{"NaN humidity", func(r RawInput) { r["humidity"] = math.NaN() }, "humidity"},
		{"infinite humidity", func(r RawInput) { r["humidity"] = math.Inf(-1) }, "humidity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validInput()
			tc.mutate(raw)

			_, err := Normalize(raw, testNow)
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if !strings.Contains(validation.Error(), tc.missing) {
				t.Errorf("error %q does not name field %s", validation.Error(), tc.missing)
			}
		})
	}
}

func TestNormalizeRejectsBothMissing(t *testing.T) {
	_, err := Normalize(RawInput{"timestamp": "1000"}, testNow)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(validation.Fields) != 2 {
		t.Errorf("fields = %v, want both temperature and humidity", validation.Fields)
	}
}

// A malformed timestamp is replaced with server time; a malformed
// temperature rejects the reading.
func TestNormalizeTimestampFallback(t *testing.T) {
	for _, value := range []any{"not-a-number", "", nil} {
		raw := validInput()
		raw["timestamp"] = value

		reading, err := Normalize(raw, testNow)
		if err != nil {
			t.Fatalf("timestamp %v: unexpected error: %v", value, err)
		}
		if reading.Timestamp != testNow.UnixMilli() {
			t.Errorf("timestamp %v: got %d, want fallback %d", value, reading.Timestamp, testNow.UnixMilli())
		}
	}

	raw := validInput()
	delete(raw, "timestamp")
	reading, err := Normalize(raw, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Timestamp != testNow.UnixMilli() {
		t.Errorf("missing timestamp: got %d, want fallback", reading.Timestamp)
	}

	raw = validInput()
	raw["timestamp"] = "0"
	if reading, err = Normalize(raw, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Timestamp != testNow.UnixMilli() {
		t.Errorf("zero timestamp: got %d, want fallback", reading.Timestamp)
	}

	// Negative timestamps parse and are kept as-is.
	raw = validInput()
	raw["timestamp"] = "-5"
	if reading, err = Normalize(raw, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Timestamp != -5 {
		t.Errorf("negative timestamp: got %d, want -5 preserved", reading.Timestamp)
	}
}

func TestNormalizeDeviceIDDefault(t *testing.T) {
	raw := validInput()
	delete(raw, "device_id")

	reading, err := Normalize(raw, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.DeviceID != DefaultDeviceID {
		t.Errorf("device id = %q, want %q", reading.DeviceID, DefaultDeviceID)
	}
}

func TestNormalizeOptionalFieldsPermissive(t *testing.T) {
	raw := validInput()
	raw["motion_x"] = "sideways"
	raw["gyro_y"] = nil
	raw["sound"] = "loud"

	reading, err := Normalize(raw, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Sensors.Motion.X != 0 || reading.Sensors.Motion.GyroY != 0 {
		t.Errorf("unparseable motion fields should default to 0, got %+v", reading.Sensors.Motion)
	}
	if reading.Sensors.Sound.Raw != 0 {
		t.Errorf("unparseable sound should default to 0, got %d", reading.Sensors.Sound.Raw)
	}
}
