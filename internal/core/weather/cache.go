package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// Cache kinds, used as metric labels
const (
	CacheKindCurrent  = "current"
	CacheKindForecast = "forecast"
	CacheKindWeekly   = "weekly"
)

// CurrentKey is the cache key for current weather by city name
func CurrentKey(city string) string {
	return CacheKindCurrent + ":" + strings.ToLower(city)
}

// ForecastKey is the cache key for the hourly series at a location
func ForecastKey(c ports.Coordinates) string {
	return fmt.Sprintf("%s:%.4f,%.4f", CacheKindForecast, c.Lat, c.Lon)
}

// WeeklyKey is the cache key for the weekly forecast at a location
func WeeklyKey(c ports.Coordinates) string {
	return fmt.Sprintf("%s:%.4f,%.4f", CacheKindWeekly, c.Lat, c.Lon)
}

// ResponseCache memoizes normalized responses for the process lifetime.
// Entries never expire. A read failure is treated as a miss and a write
// failure is only logged.
type ResponseCache struct {
	provider ports.CacheProvider
	metrics  ports.MetricsCollector
	logger   ports.Logger
}

// NewResponseCache wraps a generic cache provider
func NewResponseCache(provider ports.CacheProvider, metrics ports.MetricsCollector, logger ports.Logger) *ResponseCache {
	return &ResponseCache{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// Get decodes the entry at key into target and reports whether it was found
func (c *ResponseCache) Get(ctx context.Context, kind, key string, target interface{}) bool {
	data, err := c.provider.Get(ctx, key)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			c.logger.Warn("Response cache read failed", ports.F("key", key), ports.F("error", err))
		}
		c.metrics.RecordCacheMiss(kind)
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn("Response cache entry is corrupt", ports.F("key", key), ports.F("error", err))
		c.metrics.RecordCacheMiss(kind)
		return false
	}

	c.metrics.RecordCacheHit(kind)
	return true
}

// Put stores value at key, overwriting any previous entry
func (c *ResponseCache) Put(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Response cache entry could not be encoded", ports.F("key", key), ports.F("error", err))
		return
	}

	if err := c.provider.Set(ctx, key, data, 0); err != nil {
		c.logger.Warn("Response cache write failed", ports.F("key", key), ports.F("error", err))
	}
}
