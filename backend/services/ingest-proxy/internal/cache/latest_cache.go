package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/models"
)

// LatestCache keeps the most recent accepted reading per device in redis so
// the read endpoint does not need store credentials for hot data.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache returns a redis-backed cache.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LatestCache{client: client, ttl: ttl}
}

func (c *LatestCache) key(deviceID string) string {
	return fmt.Sprintf("devices:latest:%s", deviceID)
}

// Save caches the reading. Best effort; callers treat errors as advisory.
func (c *LatestCache) Save(ctx context.Context, reading *models.SensorReading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(reading.DeviceID), data, c.ttl).Err()
}

// Get returns the cached reading, or nil on a miss.
func (c *LatestCache) Get(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	result, err := c.client.Get(ctx, c.key(deviceID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var reading models.SensorReading
	if err := json.Unmarshal([]byte(result), &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}
