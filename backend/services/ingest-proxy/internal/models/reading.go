package models

import "time"

// MotionBlock carries accelerometer, gyroscope and tilt angles from the board.
type MotionBlock struct {
	Magnitude float64 `json:"magnitude"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	GyroX     float64 `json:"gyro_x"`
	GyroY     float64 `json:"gyro_y"`
	GyroZ     float64 `json:"gyro_z"`
	AngleX    float64 `json:"angle_x"`
	AngleY    float64 `json:"angle_y"`
	AngleZ    float64 `json:"angle_z"`
}

// SoundBlock carries the raw microphone level.
type SoundBlock struct {
	Raw int64 `json:"raw"`
}

// SensorBlock groups the per-reading sensor values as stored remotely.
type SensorBlock struct {
	Motion      MotionBlock `json:"motion"`
	Sound       SoundBlock  `json:"sound"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
}

// SensorReading is the canonical document written to the store, once for the
// current slot and once per timestamp into history.
type SensorReading struct {
	DeviceID   string      `json:"device_id"`
	Timestamp  int64       `json:"timestamp"`
	Sensors    SensorBlock `json:"sensors"`
	ReceivedAt time.Time   `json:"received_at"`
}
