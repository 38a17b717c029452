package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/fejiro0/MentalHealthBacknd/backend/libs/config"
)

const defaultSignURL = "https://identitytoolkit.googleapis.com/v1/accounts:signUp"

// Config defines ingest proxy configuration. The store base URL is the only
// hard requirement; everything else has a working default, and an empty
// issuance key switches the proxy to unauthenticated store access.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"INGEST_HTTP_PORT"`
	} `yaml:"http"`
	Store struct {
		BaseURL string        `yaml:"baseUrl" env:"STORE_BASE_URL"`
		Timeout time.Duration `yaml:"timeout" env:"STORE_TIMEOUT"`
	} `yaml:"store"`
	Auth struct {
		APIKey          string        `yaml:"apiKey" env:"STORE_API_KEY"`
		SignURL         string        `yaml:"signUrl" env:"STORE_SIGN_URL"`
		RefreshInterval time.Duration `yaml:"refreshInterval" env:"AUTH_REFRESH_INTERVAL"`
	} `yaml:"auth"`
	Cache struct {
		RedisAddr     string        `yaml:"redisAddr" env:"CACHE_REDIS_ADDR"`
		RedisPassword string        `yaml:"redisPassword" env:"CACHE_REDIS_PASSWORD"`
		RedisDB       int           `yaml:"redisDb" env:"CACHE_REDIS_DB"`
		TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	} `yaml:"cache"`
	Feed struct {
		PingInterval time.Duration `yaml:"pingInterval" env:"FEED_PING_INTERVAL"`
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"FEED_WRITE_TIMEOUT"`
	} `yaml:"feed"`
}

// Load configuration using the shared helper and validate required fields.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.BaseURL) == "" {
		return nil, errors.New("config: store base URL is required")
	}

	return cfg, nil
}

// HTTPAddress returns :port style address. The source proxy listened on 3000.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// SignURL returns the credential issuance endpoint.
func (c *Config) SignURL() string {
	if strings.TrimSpace(c.Auth.SignURL) == "" {
		return defaultSignURL
	}
	return c.Auth.SignURL
}

// RefreshInterval returns the credential refresh cadence. Tokens are valid
// for an hour, so the default refresh runs at 50 minutes.
func (c *Config) RefreshInterval() time.Duration {
	if c.Auth.RefreshInterval <= 0 {
		return 50 * time.Minute
	}
	return c.Auth.RefreshInterval
}

// StoreTimeout returns the per-write HTTP timeout.
func (c *Config) StoreTimeout() time.Duration {
	if c.Store.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Store.Timeout
}

// CacheTTL returns how long a latest reading stays cached.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL <= 0 {
		return time.Hour
	}
	return c.Cache.TTL
}

// FeedPingInterval returns the live feed keepalive cadence.
func (c *Config) FeedPingInterval() time.Duration {
	if c.Feed.PingInterval <= 0 {
		return 30 * time.Second
	}
	return c.Feed.PingInterval
}

// FeedWriteTimeout returns the live feed write deadline.
func (c *Config) FeedWriteTimeout() time.Duration {
	if c.Feed.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return c.Feed.WriteTimeout
}

// MaskedAPIKey returns the key suffix for startup logging.
func (c *Config) MaskedAPIKey() string {
	key := strings.TrimSpace(c.Auth.APIKey)
	if key == "" {
		return "not set"
	}
	if len(key) <= 6 {
		return "***"
	}
	return "***" + key[len(key)-6:]
}
