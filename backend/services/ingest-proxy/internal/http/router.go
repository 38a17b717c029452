package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes defines HTTP endpoints.
type Routes struct {
	SensorData      http.Handler
	Health          http.Handler
	StoreTest       http.Handler
	DeviceRegister  http.HandlerFunc
	DeviceAssign    http.HandlerFunc
	DeviceGet       http.HandlerFunc
	LatestReading   http.Handler
	LiveFeed        http.Handler
	MetricsGatherer prometheus.Gatherer
}

// NewRouter sets up HTTP routing with request logging.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestLogging(logger))

	if routes.SensorData != nil {
		r.Handle("/sensor-data", routes.SensorData).Methods(http.MethodPost)
	}
	if routes.Health != nil {
		r.Handle("/health", routes.Health).Methods(http.MethodGet)
	}
	if routes.StoreTest != nil {
		r.Handle("/test-store", routes.StoreTest).Methods(http.MethodGet)
	}
	if routes.DeviceRegister != nil {
		r.HandleFunc("/devices/register", routes.DeviceRegister).Methods(http.MethodPost)
	}
	if routes.DeviceAssign != nil {
		r.HandleFunc("/devices/{deviceId}/assign", routes.DeviceAssign).Methods(http.MethodPost)
	}
	if routes.LatestReading != nil {
		r.Handle("/devices/{deviceId}/latest", routes.LatestReading).Methods(http.MethodGet)
	}
	if routes.LiveFeed != nil {
		r.Handle("/devices/{deviceId}/live", routes.LiveFeed).Methods(http.MethodGet)
	}
	if routes.DeviceGet != nil {
		r.HandleFunc("/devices/{deviceId}", routes.DeviceGet).Methods(http.MethodGet)
	}
	if routes.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(routes.MetricsGatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}
