// internal/handler/altimeter_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"altimeter-service/internal/config"
	"altimeter-service/internal/service"
	"altimeter-service/internal/utils"
)

// AltimeterHandler handles altimeter-related HTTP requests
type AltimeterHandler struct {
	altimeterService *service.AltimeterService
	logger           *utils.ServiceLogger
}

// NewAltimeterHandler creates a new altimeter handler
func NewAltimeterHandler(altimeterService *service.AltimeterService, logger *zap.Logger) *AltimeterHandler {
	return &AltimeterHandler{
		altimeterService: altimeterService,
		logger:           utils.NewServiceLogger(logger, "altimeter-handler"),
	}
}

// RegisterRoutes registers altimeter-related routes
func (h *AltimeterHandler) RegisterRoutes(router *gin.RouterGroup) {
	altimeter := router.Group("/altimeter")
	{
		altimeter.GET("/options", h.GetOptions)
		altimeter.PUT("/options", h.UpdateOptions)
		altimeter.GET("/options/schema", h.GetOptionSchema)
		altimeter.GET("/reading", h.GetReading)
		altimeter.GET("/status", h.GetStatus)
	}

	router.GET("/ports", h.ListPorts)
}

// GetOptions returns the currently applied option values
func (h *AltimeterHandler) GetOptions(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Options retrieved", h.altimeterService.Options())
}

// UpdateOptions applies a partial option update. Values failing schema
// validation are rejected with 400 and the previous options stay active.
func (h *AltimeterHandler) UpdateOptions(c *gin.Context) {
	var values map[string]interface{}
	if err := c.ShouldBindJSON(&values); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := h.altimeterService.UpdateOptions(values)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Option update rejected", err)
			return
		}
		h.logger.Error("Failed to update options", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update options", err)
		return
	}

	h.logger.Info("Options updated",
		zap.Bool(config.OptionPortEnabled, settings.Enabled),
		zap.Int(config.OptionPortBaudrate, settings.BaudRate),
		zap.String(config.OptionPort, settings.PortPath),
	)
	utils.SuccessResponse(c, http.StatusOK, "Options updated", map[string]interface{}{
		config.OptionPortEnabled:  settings.Enabled,
		config.OptionPortBaudrate: settings.BaudRate,
		config.OptionPort:         settings.PortPath,
	})
}

// GetOptionSchema returns the option schema for supervisory tooling
func (h *AltimeterHandler) GetOptionSchema(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Option schema retrieved", h.altimeterService.Schema())
}

// GetReading returns the most recent range reading
func (h *AltimeterHandler) GetReading(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Reading retrieved", h.altimeterService.LatestReading())
}

// GetStatus returns the session status
func (h *AltimeterHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved", h.altimeterService.Status())
}

// ListPorts enumerates serial ports on the host
func (h *AltimeterHandler) ListPorts(c *gin.Context) {
	ports, err := h.altimeterService.ListPorts()
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Serial ports retrieved", map[string]interface{}{
		"ports": ports,
	})
}
