package handlers

import (
	"context"
	"net/http"
	"time"

	"subsync/internal/caching"
	"subsync/internal/jobs/background"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStatusProvider reports scheduled jobs; *background.JobScheduler
// satisfies it.
type JobStatusProvider interface {
	GetJobStatus() []background.JobStatus
}

// HealthHandlers handles liveness and readiness probes
type HealthHandlers struct {
	db        Pinger
	cache     caching.CacheService
	scheduler JobStatusProvider
	version   string
	startedAt time.Time
	logger    *zap.Logger
}

func NewHealthHandlers(db Pinger, cache caching.CacheService, scheduler JobStatusProvider, version string, logger *zap.Logger) *HealthHandlers {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &HealthHandlers{
		db:        db,
		cache:     cache,
		scheduler: scheduler,
		version:   version,
		startedAt: time.Now(),
		logger:    logger.Named("health"),
	}
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Services  map[string]string      `json:"services,omitempty"`
	Jobs      []background.JobStatus `json:"jobs,omitempty"`
}

// LivenessCheck godoc
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthStatus
//	@Router		/health [get]
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.baseStatus("alive"))
}

// ReadinessCheck godoc
//
//	@Summary	Readiness probe, checks Postgres and Redis
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthStatus
//	@Failure	503	{object}	HealthStatus
//	@Router		/health/ready [get]
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	status := h.baseStatus("ready")
	status.Services = map[string]string{}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		status.Services["database"] = "unhealthy"
		status.Status = "not_ready"
	} else {
		status.Services["database"] = "healthy"
	}

	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("redis health check failed", zap.Error(err))
		status.Services["redis"] = "unhealthy"
		status.Status = "not_ready"
	} else {
		status.Services["redis"] = "healthy"
	}

	if h.scheduler != nil {
		status.Jobs = h.scheduler.GetJobStatus()
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

func (h *HealthHandlers) baseStatus(state string) *HealthStatus {
	return &HealthStatus{
		Status:    state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	}
}

func (h *HealthHandlers) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.LivenessCheck)
	e.GET("/health/ready", h.ReadinessCheck)
}
