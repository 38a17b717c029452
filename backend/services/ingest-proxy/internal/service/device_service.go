package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/credential"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/store"
)

// ErrDeviceNotFound is returned when no metadata document exists for an id.
var ErrDeviceNotFound = errors.New("device not found")

const (
	defaultHardwareModel   = "MXChip AZ3166"
	defaultFirmwareVersion = "1.0"
	deviceStatusActive     = "active"
)

// DeviceService maintains registration metadata in the store. It holds no
// local state; every operation is a passthrough to the metadata document.
type DeviceService struct {
	store  *store.Client
	creds  *credential.Manager
	logger *zap.Logger
}

// NewDeviceService wires the registry passthrough.
func NewDeviceService(storeClient *store.Client, creds *credential.Manager, logger *zap.Logger) *DeviceService {
	return &DeviceService{store: storeClient, creds: creds, logger: logger}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	DeviceID       string
	Name           string
	AssignedUserID *string
	PatientID      *string
}

// Register writes a fresh metadata document for the device.
func (s *DeviceService) Register(ctx context.Context, in RegisterInput) (*models.DeviceMetadata, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	metadata := &models.DeviceMetadata{
		DeviceID:       in.DeviceID,
		Name:           in.Name,
		AssignedUserID: in.AssignedUserID,
		PatientID:      in.PatientID,
		RegisteredAt:   now,
		LastSeen:       now,
		Status:         deviceStatusActive,
		HardwareInfo: models.HardwareInfo{
			Model:           defaultHardwareModel,
			FirmwareVersion: defaultFirmwareVersion,
		},
	}

	if err := s.store.Put(ctx, s.metadataPath(in.DeviceID), metadata, s.creds.Current()); err != nil {
		return nil, err
	}
	s.logger.Info("device registered", zap.String("device_id", in.DeviceID))
	return metadata, nil
}

// Assign patches assignment fields onto an existing metadata document.
func (s *DeviceService) Assign(ctx context.Context, deviceID, userID string, patientID *string) error {
	update := models.DeviceAssignment{
		AssignedUserID: userID,
		PatientID:      patientID,
		LastSeen:       time.Now().UTC().Format(time.RFC3339),
		Status:         deviceStatusActive,
	}
	if err := s.store.Patch(ctx, s.metadataPath(deviceID), update, s.creds.Current()); err != nil {
		return err
	}
	s.logger.Info("device assigned",
		zap.String("device_id", deviceID), zap.String("user_id", userID))
	return nil
}

// Get reads a device's metadata document.
func (s *DeviceService) Get(ctx context.Context, deviceID string) (*models.DeviceMetadata, error) {
	body, err := s.store.Get(ctx, s.metadataPath(deviceID), s.creds.Current())
	if err != nil {
		return nil, err
	}
	if isNullDocument(body) {
		return nil, ErrDeviceNotFound
	}
	var metadata models.DeviceMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("decode device metadata: %w", err)
	}
	return &metadata, nil
}

func (s *DeviceService) metadataPath(deviceID string) string {
	return fmt.Sprintf("devices/%s/metadata", deviceID)
}
