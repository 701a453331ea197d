package infrastructure

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// DatabaseHealthChecker implements database health checking
type DatabaseHealthChecker struct {
	db *gorm.DB
}

// NewDatabaseHealthChecker creates a new database health checker
func NewDatabaseHealthChecker(db *gorm.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

// Check verifies database connectivity
func (d *DatabaseHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "database",
		Details:   make(map[string]interface{}),
	}

	if d.db == nil {
		status.Status = statusUnhealthy
		status.Error = "database instance is nil"
		return status
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		status.Status = statusUnhealthy
		status.Error = "failed to get underlying database connection"
		return status
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		status.Status = statusUnhealthy
		status.Error = err.Error()
		return status
	}

	status.Status = statusHealthy
	status.Details["dialect"] = d.db.Dialector.Name()
	return status
}

// Pinger is implemented by cache backends with a remote connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckedCache is a response cache that also counts hits
type CheckedCache interface {
	ports.CacheProvider
	ports.CacheMetrics
}

// cacheCheckTTL bounds the life of a check key whose Delete failed
const cacheCheckTTL = 30 * time.Second

// CacheHealthChecker reports response-cache availability and hit ratio
type CacheHealthChecker struct {
	backend string
	cache   CheckedCache
	pinger  Pinger
}

// NewCacheHealthChecker creates a cache health checker. pinger may be nil
// for in-process backends.
func NewCacheHealthChecker(backend string, cache CheckedCache, pinger Pinger) *CacheHealthChecker {
	return &CacheHealthChecker{backend: backend, cache: cache, pinger: pinger}
}

// Check pings the backend, then writes, looks up and removes a throwaway key
func (c *CacheHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "cache",
		Status:    statusHealthy,
		Details:   map[string]interface{}{"backend": c.backend},
	}

	if c.pinger != nil {
		if err := c.pinger.Ping(ctx); err != nil {
			status.Status = statusUnhealthy
			status.Error = err.Error()
			return status
		}
	}

	if c.cache == nil {
		return status
	}

	if err := c.roundTrip(ctx); err != nil {
		status.Status = statusUnhealthy
		status.Error = err.Error()
		return status
	}

	stats := c.cache.GetStats()
	status.Details["hits"] = stats.Hits
	status.Details["misses"] = stats.Misses
	status.Details["hit_ratio"] = stats.HitRatio
	return status
}

func (c *CacheHealthChecker) roundTrip(ctx context.Context) error {
	// Unique per call so concurrent checks never see each other's key
	key := "health:" + uuid.NewString()

	if err := c.cache.Set(ctx, key, []byte(statusHealthy), cacheCheckTTL); err != nil {
		return err
	}

	exists, err := c.cache.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewStorageError("cache did not keep the check key", nil)
	}

	return c.cache.Delete(ctx, key)
}

// WeatherAPIHealthChecker reports whether a weather client is wired.
// It makes no provider call, so it never spends API quota.
type WeatherAPIHealthChecker struct {
	client ports.WeatherClient
}

func NewWeatherAPIHealthChecker(client ports.WeatherClient) *WeatherAPIHealthChecker {
	return &WeatherAPIHealthChecker{client: client}
}

func (w *WeatherAPIHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "weatherAPI",
		Status:    statusHealthy,
		Details:   map[string]interface{}{},
	}

	if w.client == nil {
		status.Status = statusUnhealthy
		status.Error = "weather client is not available"
		return status
	}

	status.Details["provider"] = w.client.ProviderName()
	return status
}

// SystemHealthChecker aggregates component health checks
type SystemHealthChecker struct {
	checkers map[string]ports.HealthChecker
}

// NewSystemHealthChecker creates a system health checker. Nil checkers are skipped.
func NewSystemHealthChecker(checkers map[string]ports.HealthChecker) *SystemHealthChecker {
	active := make(map[string]ports.HealthChecker, len(checkers))
	for name, checker := range checkers {
		if checker != nil {
			active[name] = checker
		}
	}
	return &SystemHealthChecker{checkers: active}
}

// CheckAll performs health checks on all components
func (s *SystemHealthChecker) CheckAll(ctx context.Context) map[string]ports.HealthStatus {
	results := make(map[string]ports.HealthStatus, len(s.checkers))
	for name, checker := range s.checkers {
		results[name] = checker.Check(ctx)
	}
	return results
}
