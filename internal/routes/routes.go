// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"altimeter-service/internal/config"
	"altimeter-service/internal/handler"
	"altimeter-service/internal/middleware"
	"altimeter-service/internal/service"
	"altimeter-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	altimeterService *service.AltimeterService
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	altimeterService *service.AltimeterService,
	wsHandler *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		altimeterService: altimeterService,
		wsHandler:        wsHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// Set Gin mode
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(middleware.RecoveryMiddleware(r.logger))

	// Request ID middleware
	router.Use(middleware.RequestIDMiddleware())

	// Logging middleware
	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	// CORS middleware
	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.altimeterService, r.config, r.logger)
	altimeterHandler := handler.NewAltimeterHandler(r.altimeterService, r.logger)

	// Health check routes
	health := router.Group("")
	healthHandler.RegisterRoutes(health)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	altimeterHandler.RegisterRoutes(apiV1)

	// WebSocket routes
	ws := router.Group("/ws")
	r.wsHandler.RegisterRoutes(ws)

	r.logger.Info("All routes configured successfully")
}
