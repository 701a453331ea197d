package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"weatherdash.app/internal/adapters/api"
	"weatherdash.app/internal/adapters/infrastructure"
	"weatherdash.app/internal/config"
	"weatherdash.app/internal/core/dashboard"
	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/ports"
)

type Application struct {
	config *config.Config

	// Use Cases
	weatherService *weather.Service
	sessions       *dashboard.Manager

	// Adapters
	server *api.HTTPServerAdapter

	// Infrastructure
	deps  *DependencyContainer
	ports *ports.ApplicationPorts
}

func NewApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	deps, err := NewDependencyContainer(cfg, DependencyOptions{})
	if err != nil {
		return nil, fmt.Errorf("create dependency container: %w", err)
	}

	app, err := NewApplicationWithDependencies(cfg, deps)
	if err != nil {
		_ = deps.Cleanup()
		return nil, err
	}
	return app, nil
}

// NewApplicationWithDependencies wires use cases and adapters over an existing container
func NewApplicationWithDependencies(cfg *config.Config, deps *DependencyContainer) (*Application, error) {
	app := &Application{
		config: cfg,
		deps:   deps,
		ports:  deps.ApplicationPorts(),
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	if err := app.initializeAdapters(); err != nil {
		return nil, fmt.Errorf("initialize adapters: %w", err)
	}

	return app, nil
}

func (a *Application) initializeUseCases() error {
	slog.Info("Initializing use cases...")

	weatherService, err := weather.NewService(weather.ServiceDependencies{
		Client:  a.ports.WeatherClient,
		Cache:   a.ports.CacheProvider,
		Logger:  a.ports.Logger,
		Metrics: a.ports.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create weather service: %w", err)
	}
	a.weatherService = weatherService

	sessions, err := dashboard.NewManager(dashboard.ManagerDependencies{
		Weather: weatherService,
		Storage: a.ports.Storage,
		Logger:  a.ports.Logger,
		Metrics: a.ports.Metrics,
		Config: dashboard.SessionConfig{
			Debounce:       time.Duration(a.config.Dashboard.DebounceMillis) * time.Millisecond,
			MinQueryLength: a.config.Dashboard.MinQueryLength,
			IconBaseURL:    a.config.Weather.IconBaseURL,
		},
		DefaultViewportWidth: a.config.Dashboard.DefaultViewportWidth,
	})
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}
	a.sessions = sessions

	slog.Info("Use cases initialized successfully")
	return nil
}

func (a *Application) initializeAdapters() error {
	slog.Info("Initializing adapters...")

	systemHealthChecker := infrastructure.NewSystemHealthChecker(a.deps.HealthCheckers())

	server, err := api.NewHTTPServerAdapter(api.ServerOptions{
		Config: api.ServerConfig{
			Port: a.config.Server.Port,
		},
		Sessions:      a.sessions,
		HealthChecker: systemHealthChecker,
		Metrics:       a.deps.MetricsCollector(),
		CacheMetrics:  a.ports.CacheMetrics,
		Gatherer:      a.deps.Registry(),
	})
	if err != nil {
		return fmt.Errorf("create HTTP adapter: %w", err)
	}
	a.server = server

	slog.Info("Adapters initialized successfully")
	return nil
}

// Start serves HTTP until Shutdown is called
func (a *Application) Start(ctx context.Context) error {
	slog.Info("Starting application...")
	return a.server.Start()
}

// Shutdown stops the server first so no new events arrive, then drains
// sessions and releases infrastructure.
func (a *Application) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
		firstErr = fmt.Errorf("shutdown HTTP server: %w", err)
	}

	if err := a.sessions.Shutdown(ctx); err != nil {
		slog.Warn("Sessions did not settle before shutdown", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("shutdown sessions: %w", err)
		}
	}

	if err := a.deps.Cleanup(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("release resources: %w", err)
	}

	slog.Info("Application shutdown complete")
	return firstErr
}

// Config returns the application configuration
func (a *Application) Config() *config.Config {
	return a.config
}

// GetRouter returns the Gin router for testing
func (a *Application) GetRouter() *gin.Engine {
	return a.server.GetRouter()
}

// GetWeatherService returns the weather service for testing
func (a *Application) GetWeatherService() *weather.Service {
	return a.weatherService
}

// GetSessionManager returns the session registry for testing
func (a *Application) GetSessionManager() *dashboard.Manager {
	return a.sessions
}
