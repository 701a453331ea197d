package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"weatherdash.app/internal/adapters/database"
	"weatherdash.app/internal/adapters/external"
	"weatherdash.app/internal/adapters/infrastructure"
	"weatherdash.app/internal/config"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

type DependencyContainer struct {
	config   *config.Config
	options  DependencyOptions
	db       *gorm.DB
	cache    external.CacheBackend
	registry *prometheus.Registry
	metrics  *infrastructure.PrometheusMetricsCollector
	ports    *ports.ApplicationPorts

	// closers run in reverse order on Cleanup
	closers []func() error
}

// DependencyOptions replaces parts of the wiring, mostly for tests
type DependencyOptions struct {
	// WeatherClient skips building the OpenWeatherMap client
	WeatherClient ports.WeatherClient
	// LogOutput defaults to stdout
	LogOutput io.Writer
}

func NewDependencyContainer(cfg *config.Config, opts DependencyOptions) (*DependencyContainer, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("configuration is required", nil)
	}

	container := &DependencyContainer{
		config:  cfg,
		options: opts,
		ports:   &ports.ApplicationPorts{},
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"logger", container.initializeLogger},
		{"metrics", container.initializeMetrics},
		{"storage", container.initializeStorage},
		{"cache", container.initializeCache},
		{"weather client", container.initializeWeatherClient},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			_ = container.Cleanup()
			return nil, fmt.Errorf("initialize %s: %w", step.name, err)
		}
	}

	return container, nil
}

func (c *DependencyContainer) initializeLogger() error {
	logger, flush, err := infrastructure.NewLogger(c.config.Logging, c.options.LogOutput)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, flush)
	c.ports.Logger = logger

	slog.Info("Logger initialized", "backend", c.config.Logging.Backend, "level", c.config.Logging.Level)
	return nil
}

func (c *DependencyContainer) initializeMetrics() error {
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.metrics = infrastructure.NewPrometheusMetricsCollector(c.registry)
	c.ports.Metrics = c.metrics
	return nil
}

func (c *DependencyContainer) initializeStorage() error {
	slog.Info("Initializing storage...", "type", string(c.config.Storage.Type))

	store, db, err := database.NewKeyValueStore(c.config.Storage)
	if err != nil {
		return err
	}
	if db != nil {
		c.db = db
		c.closers = append(c.closers, func() error { return database.Close(db) })
	}
	c.ports.Storage = store

	slog.Info("Storage initialized successfully")
	return nil
}

func (c *DependencyContainer) initializeCache() error {
	cache, err := external.NewCacheProviderFactory().CreateCacheProvider(&c.config.Cache)
	if err != nil {
		return err
	}
	c.cache = cache
	c.ports.CacheProvider = cache
	c.ports.CacheMetrics = cache

	if closer, ok := cache.(io.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}

	slog.Info("Cache provider initialized",
		"type", c.config.Cache.Type.String(),
		"redis_addr", c.config.Cache.Redis.Addr)
	return nil
}

func (c *DependencyContainer) initializeWeatherClient() error {
	if c.options.WeatherClient != nil {
		c.ports.WeatherClient = c.options.WeatherClient
		return nil
	}

	weatherCfg := c.config.Weather
	providerLogger := c.ports.Logger

	// Provider traffic also goes to its own file when enabled
	if weatherCfg.EnableLogging && weatherCfg.LogFilePath != "" {
		fileLogger, err := infrastructure.NewFileLoggerAdapter(weatherCfg.LogFilePath)
		if err != nil {
			slog.Warn("Failed to create file logger, provider logs stay on the main logger", "error", err)
		} else {
			c.closers = append(c.closers, fileLogger.Close)
			providerLogger = infrastructure.NewTeeLogger(c.ports.Logger, fileLogger)
			slog.Info("File logging enabled", "path", weatherCfg.LogFilePath)
		}
	}

	client, err := external.NewOpenWeatherMapClient(external.OpenWeatherMapClientParams{
		APIKey:      weatherCfg.APIKey,
		BaseURL:     weatherCfg.BaseURL,
		Timeout:     time.Duration(weatherCfg.RequestTimeoutSeconds) * time.Second,
		MaxFailures: weatherCfg.BreakerMaxFailures,
		Logger:      providerLogger,
		Metrics:     c.metrics,
	})
	if err != nil {
		return err
	}

	var weatherClient ports.WeatherClient = client
	if weatherCfg.EnableLogging {
		weatherClient = external.NewWeatherClientLoggingDecorator(client, providerLogger)
		slog.Info("Weather provider logging enabled")
	}

	c.ports.WeatherClient = weatherClient
	return nil
}

// HealthCheckers builds one checker per wired component
func (c *DependencyContainer) HealthCheckers() map[string]ports.HealthChecker {
	var pinger infrastructure.Pinger
	if p, ok := c.cache.(infrastructure.Pinger); ok {
		pinger = p
	}

	checkers := map[string]ports.HealthChecker{
		"cache":      infrastructure.NewCacheHealthChecker(c.config.Cache.Type.String(), c.cache, pinger),
		"weatherAPI": infrastructure.NewWeatherAPIHealthChecker(c.ports.WeatherClient),
	}
	if c.db != nil {
		checkers["database"] = infrastructure.NewDatabaseHealthChecker(c.db)
	}
	return checkers
}

func (c *DependencyContainer) ApplicationPorts() *ports.ApplicationPorts {
	return c.ports
}

func (c *DependencyContainer) Database() *gorm.DB {
	return c.db
}

// Registry is the prometheus registry served on /metrics
func (c *DependencyContainer) Registry() *prometheus.Registry {
	return c.registry
}

// MetricsCollector exposes the collector for the JSON metrics endpoint
func (c *DependencyContainer) MetricsCollector() *infrastructure.PrometheusMetricsCollector {
	return c.metrics
}

// Cleanup releases cache, database and log resources, newest first
func (c *DependencyContainer) Cleanup() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("Error releasing resource", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.closers = nil
	return firstErr
}
