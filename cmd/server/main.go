// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"altimeter-service/internal/config"
	"altimeter-service/internal/handler"
	"altimeter-service/internal/routes"
	"altimeter-service/internal/service"
	"altimeter-service/internal/session"
	"altimeter-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	altimeterSession *session.Session
	altimeterService *service.AltimeterService

	eventBus  *handler.EventBus
	wsHandler *handler.WebSocketHandler
}

func main() {
	// Initialize application
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// The schema defaults must construct a valid snapshot; this is the one
	// failure that terminates startup outright.
	if _, err := config.DefaultSettings(); err != nil {
		return nil, fmt.Errorf("failed to construct configuration schema: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "altimeter-service")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeSession(); err != nil {
		return nil, fmt.Errorf("failed to initialize altimeter session: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeSession sets up the altimeter session and its event plumbing
func (app *Application) initializeSession() error {
	settings, err := app.config.Altimeter.Settings()
	if err != nil {
		return err
	}

	timing := session.Timing{
		ReadInterval: app.config.Altimeter.ReadInterval,
		ReadTimeout:  app.config.Altimeter.ReadTimeout,
		BackoffMin:   app.config.Altimeter.BackoffMin,
		BackoffMax:   app.config.Altimeter.BackoffMax,
	}

	opener := session.NewSerialOpener(app.logger)
	app.altimeterSession = session.New(settings, timing, opener, app.logger)
	app.altimeterService = service.NewAltimeterService(settings, app.altimeterSession, app.logger)

	// Event plumbing: session events fan out over the bus to WebSocket clients
	app.eventBus = handler.NewEventBus(app.logger)
	app.wsHandler = handler.NewWebSocketHandler(app.altimeterService, app.logger)
	adapter := handler.NewSessionEventAdapter(app.wsHandler, app.eventBus, app.logger)
	app.altimeterSession.SetEventHandler(adapter)

	return nil
}

// initializeServer sets up the HTTP server
func (app *Application) initializeServer() error {
	router := routes.NewRouter(app.config, app.logger, app.altimeterService, app.wsHandler)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	return nil
}

// Start runs the application until a shutdown signal arrives
func (app *Application) Start() error {
	go app.eventBus.Start()

	app.altimeterSession.Start(context.Background())

	// Re-apply settings when the config file changes on disk
	config.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			app.logger.Warn("Ignoring config file change", zap.Error(err))
			return
		}
		settings, err := cfg.Altimeter.Settings()
		if err != nil {
			app.logger.Warn("Ignoring config file change", zap.Error(err))
			return
		}
		app.logger.Info("Config file changed, applying altimeter settings")
		app.altimeterService.ApplySettings(settings)
	})

	// Start server in goroutine
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()

	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "altimeter-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Stop the session first so the serial handle is released cleanly
	app.altimeterSession.Stop()
	app.logger.Info("Altimeter session stopped")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}
