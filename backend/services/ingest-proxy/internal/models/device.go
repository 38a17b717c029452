package models

// HardwareInfo identifies the board model and firmware of a registered device.
type HardwareInfo struct {
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmwareVersion"`
}

// DeviceMetadata is the registration document stored under
// /devices/{id}/metadata. Assignment fields are nullable.
type DeviceMetadata struct {
	DeviceID       string       `json:"deviceId"`
	Name           string       `json:"name"`
	AssignedUserID *string      `json:"assignedUserId"`
	PatientID      *string      `json:"patientId"`
	RegisteredAt   string       `json:"registeredAt"`
	LastSeen       string       `json:"lastSeen"`
	Status         string       `json:"status"`
	HardwareInfo   HardwareInfo `json:"hardwareInfo"`
}

// DeviceAssignment is the partial metadata update applied when a device is
// assigned to a caregiver/patient pair.
type DeviceAssignment struct {
	AssignedUserID string  `json:"assignedUserId"`
	PatientID      *string `json:"patientId"`
	LastSeen       string  `json:"lastSeen"`
	Status         string  `json:"status"`
}
