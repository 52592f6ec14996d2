package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"portfoliopulse/internal/backend"
	"portfoliopulse/internal/config"
	"portfoliopulse/internal/warehouse"
	ws "portfoliopulse/internal/websocket"
)

// HealthService provides health check functionality
type HealthService struct {
	version      string
	buildTime    string
	paths        config.PathsConfig
	backend      *backend.Client
	warehouse    *warehouse.Store
	webSocketHub *ws.Hub
	startTime    time.Time
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version, buildTime string, paths config.PathsConfig, client *backend.Client, wh *warehouse.Store, hub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthService{
		version:      version,
		buildTime:    buildTime,
		paths:        paths,
		backend:      client,
		warehouse:    wh,
		webSocketHub: hub,
		startTime:    time.Now(),
		logger:       logger.With(slog.String("component", "health_service")),
	}
}

// Check performs a liveness check with runtime information.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	return &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
	}
}

// Readiness performs a readiness check including the metrics backend.
func (s *HealthService) Readiness(ctx context.Context) *HealthStatus {
	status := s.Check(ctx)
	status.Services = make(map[string]interface{})

	backendHealth := ServiceHealth{Status: "healthy"}
	if err := s.backend.Ping(ctx); err != nil {
		backendHealth = ServiceHealth{Status: "unhealthy", Message: err.Error()}
		status.Status = "degraded"
		s.logger.WarnContext(ctx, "backend health check failed",
			slog.String("error", err.Error()))
	}
	status.Services["metrics_backend"] = backendHealth

	if s.webSocketHub != nil {
		status.Services["websocket"] = map[string]interface{}{
			"status":  "healthy",
			"clients": s.webSocketHub.ClientCount(),
		}
	}

	if s.warehouse != nil {
		if stats, err := s.warehouse.ComputeStats(); err == nil {
			status.Services["warehouse"] = map[string]interface{}{
				"status":     "healthy",
				"tickers":    stats.Tickers,
				"files":      stats.Files,
				"size_bytes": stats.SizeBytes,
			}
		} else {
			status.Services["warehouse"] = ServiceHealth{Status: "unhealthy", Message: err.Error()}
			status.Status = "degraded"
		}
	}

	return status
}
