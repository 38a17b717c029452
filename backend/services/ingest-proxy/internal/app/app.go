package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "github.com/fejiro0/MentalHealthBacknd/backend/libs/redis"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/cache"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/config"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/credential"
	httpserver "github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/http"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/http/handlers"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/observability"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/service"
	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/store"
	feedws "github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/ws"
)

// App wires ingest proxy dependencies.
type App struct {
	server *httpserver.Server
	creds  *credential.Manager
	hub    *feedws.Hub
	redis  *redis.Client
	logger *zap.Logger
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	creds := credential.NewManager(cfg.SignURL(), cfg.Auth.APIKey, cfg.RefreshInterval(), logger)
	storeClient := store.NewClient(cfg.Store.BaseURL, cfg.StoreTimeout(), logger)

	var redisClient *redis.Client
	var latest *cache.LatestCache
	if cfg.Cache.RedisAddr != "" {
		client, err := libredis.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, running without latest-reading cache", zap.Error(err))
		} else {
			redisClient = client
			latest = cache.NewLatestCache(client, cfg.CacheTTL())
		}
	}

	hub := feedws.NewHub(cfg.FeedPingInterval(), logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ingest := service.NewIngestService(storeClient, creds, latest, hub, metrics, logger)
	devices := service.NewDeviceService(storeClient, creds, logger)

	deviceHandler := handlers.NewDeviceHandler(devices, logger)
	routes := httpserver.Routes{
		SensorData:      handlers.NewSensorDataHandler(ingest, logger),
		Health:          handlers.NewHealthHandler(storeClient.BaseURL()),
		StoreTest:       handlers.NewStoreTestHandler(ingest, logger),
		DeviceRegister:  deviceHandler.Register,
		DeviceAssign:    deviceHandler.Assign,
		DeviceGet:       deviceHandler.Get,
		LatestReading:   handlers.NewLatestReadingHandler(ingest, logger),
		LiveFeed:        handlers.NewLiveFeedHandler(hub, cfg.FeedWriteTimeout(), logger),
		MetricsGatherer: registry,
	}

	router := httpserver.NewRouter(routes, logger)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	authMode := "store rules only"
	if creds.Enabled() {
		authMode = "anonymous issuance"
	}
	logger.Info("ingest proxy configured",
		zap.String("store_url", cfg.Store.BaseURL),
		zap.String("api_key", cfg.MaskedAPIKey()),
		zap.String("auth_mode", authMode),
		zap.Bool("latest_cache", latest != nil))

	return &App{
		server: server,
		creds:  creds,
		hub:    hub,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// Run starts the credential refresher, the live feed hub and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.creds.Run(ctx)
	go a.hub.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
