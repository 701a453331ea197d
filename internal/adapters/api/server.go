// Package api provides HTTP adapters for the hexagonal architecture
// These adapters handle incoming HTTP requests and translate them to session events
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"weatherdash.app/internal/core/dashboard"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port int
	// SettleTimeout bounds how long ?settle=true waits for background work
	SettleTimeout time.Duration
}

// HTTPServerAdapter implements HTTP server using Gin framework
type HTTPServerAdapter struct {
	router        *gin.Engine
	server        *http.Server
	config        ServerConfig
	sessions      SessionManager
	health        ports.SystemHealthChecker
	metrics       StatsProvider
	cacheMetrics  ports.CacheMetrics
	gatherer      prometheus.Gatherer
	settleTimeout time.Duration
}

// SessionManager is the session registry the handlers drive
type SessionManager interface {
	Create(ctx context.Context, viewportWidth int) (*dashboard.Session, error)
	GetOrCreate(ctx context.Context, id string, viewportWidth int) (*dashboard.Session, error)
	Get(id string) (*dashboard.Session, error)
}

// StatsProvider exposes collected metrics as JSON-friendly values
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// ServerOptions represents options for creating the HTTP server
type ServerOptions struct {
	Config        ServerConfig
	Sessions      SessionManager
	HealthChecker ports.SystemHealthChecker
	Metrics       StatsProvider
	// CacheMetrics is optional
	CacheMetrics ports.CacheMetrics
	// Gatherer backs /metrics; the default registry is used when nil
	Gatherer prometheus.Gatherer
}

const defaultSettleTimeout = 15 * time.Second

// NewHTTPServerAdapter creates a new HTTP server adapter
func NewHTTPServerAdapter(opts ServerOptions) (*HTTPServerAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	router := gin.Default()

	settleTimeout := opts.Config.SettleTimeout
	if settleTimeout <= 0 {
		settleTimeout = defaultSettleTimeout
	}

	server := &HTTPServerAdapter{
		router:        router,
		config:        opts.Config,
		sessions:      opts.Sessions,
		health:        opts.HealthChecker,
		metrics:       opts.Metrics,
		cacheMetrics:  opts.CacheMetrics,
		gatherer:      opts.Gatherer,
		settleTimeout: settleTimeout,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Config.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	server.setupRoutes()
	return server, nil
}

// Validate checks if all required dependencies are provided
func (opts *ServerOptions) Validate() error {
	if opts.Sessions == nil {
		return errors.NewValidationError("session manager is required")
	}
	if opts.HealthChecker == nil {
		return errors.NewValidationError("health checker is required")
	}
	if opts.Metrics == nil {
		return errors.NewValidationError("metrics provider is required")
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *HTTPServerAdapter) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.getHealth)
		api.GET("/metrics", s.getMetrics)

		sessions := api.Group("/sessions")
		sessions.POST("", s.createSession)
		sessions.PUT("/:id", s.openSession)
		sessions.GET("/:id", s.getSession)
		sessions.PUT("/:id/query", s.setQuery)
		sessions.POST("/:id/search", s.submitSearch)
		sessions.PUT("/:id/viewport", s.resizeViewport)
		sessions.POST("/:id/login", s.login)
		sessions.POST("/:id/logout", s.logout)
		sessions.POST("/:id/cards/:card/refresh", s.refreshCard)
		sessions.POST("/:id/cards/:card/favorite", s.toggleFavorite)
		sessions.DELETE("/:id/cards/:card", s.deleteCard)
		sessions.POST("/:id/panels/:kind/:card", s.togglePanel)
	}

	metricsHandler := promhttp.Handler()
	if s.gatherer != nil {
		metricsHandler = promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	}
	s.router.GET("/metrics", gin.WrapH(metricsHandler))
}

// Start serves HTTP until Shutdown is called
func (s *HTTPServerAdapter) Start() error {
	slog.Info("Starting HTTP server", "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *HTTPServerAdapter) Shutdown(ctx context.Context) error {
	slog.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the router for testing purposes
func (s *HTTPServerAdapter) GetRouter() *gin.Engine {
	return s.router
}
