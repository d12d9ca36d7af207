// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"altimeter-service/internal/config"
	"altimeter-service/internal/service"
	"altimeter-service/internal/session"
	"altimeter-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	altimeterService *service.AltimeterService
	config           *config.Config
	logger           *utils.ServiceLogger
	startedAt        time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(altimeterService *service.AltimeterService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		altimeterService: altimeterService,
		config:           config,
		logger:           utils.NewServiceLogger(logger, "health-handler"),
		startedAt:        time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check. The service is healthy as long
// as the process runs; a failed altimeter session is recoverable and is
// reported as a degraded check, not an unhealthy service.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks:    make(map[string]CheckResult),
	}

	status := h.altimeterService.Status()
	sessionCheck := CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"state": string(status.State),
			"port":  status.Settings.PortPath,
		},
	}
	switch status.State {
	case session.StateFailed:
		sessionCheck.Status = "degraded"
		sessionCheck.Message = status.FailReason
	case session.StateDisabled:
		sessionCheck.Message = "altimeter port disabled"
	}
	health.Checks["altimeter_session"] = sessionCheck

	reading := h.altimeterService.LatestReading()
	health.Checks["last_reading"] = CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"valid":     reading.Valid,
			"timestamp": reading.Timestamp,
		},
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	// Simple liveness check - service is alive if it can respond
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
