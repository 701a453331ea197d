package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// Service fetches weather through the response cache
type Service struct {
	client  ports.WeatherClient
	cache   *ResponseCache
	logger  ports.Logger
	metrics ports.MetricsCollector
	now     func() time.Time
}

type ServiceDependencies struct {
	Client  ports.WeatherClient
	Cache   ports.CacheProvider
	Logger  ports.Logger
	Metrics ports.MetricsCollector
	// Now defaults to time.Now
	Now func() time.Time
}

func NewService(deps ServiceDependencies) (*Service, error) {
	if deps.Client == nil {
		return nil, errors.NewValidationError("weather client is required")
	}
	if deps.Cache == nil {
		return nil, errors.NewValidationError("cache is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		client:  deps.Client,
		cache:   NewResponseCache(deps.Cache, deps.Metrics, deps.Logger),
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     now,
	}, nil
}

// Current returns the cached snapshot for city, fetching it on a miss
func (s *Service) Current(ctx context.Context, city string) (*Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.NewValidationError("Missing city")
	}

	var cached Snapshot
	if s.cache.Get(ctx, CacheKindCurrent, CurrentKey(city), &cached) {
		s.logger.Debug("Current weather found in cache", ports.F("city", city))
		return &cached, nil
	}

	return s.fetchCurrent(ctx, city)
}

// Refresh always re-fetches city and overwrites the cache entry
func (s *Service) Refresh(ctx context.Context, city string) (*Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.NewValidationError("Missing city")
	}
	return s.fetchCurrent(ctx, city)
}

func (s *Service) fetchCurrent(ctx context.Context, city string) (*Snapshot, error) {
	current, err := s.client.FetchCurrent(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("fetch current weather for %s: %w", city, err)
	}

	snapshot := NewSnapshot(current, s.now())
	s.cache.Put(ctx, CurrentKey(city), snapshot)
	return snapshot, nil
}

// Seed primes the current-weather cache with a snapshot restored from storage
func (s *Service) Seed(ctx context.Context, snapshot *Snapshot) {
	if snapshot == nil || snapshot.Name == "" {
		return
	}
	s.cache.Put(ctx, CurrentKey(snapshot.Name), snapshot)
}

// Hourly returns the 3-hour series for the snapshot's location
func (s *Service) Hourly(ctx context.Context, snapshot *Snapshot) (*ports.HourlyForecast, error) {
	if snapshot == nil {
		return nil, errors.NewValidationError("Missing card")
	}
	coords, ok := snapshot.Coordinates()
	if !ok {
		return nil, errors.NewMissingLocationError("hourly forecast is out of reach")
	}

	var cached ports.HourlyForecast
	key := ForecastKey(coords)
	if s.cache.Get(ctx, CacheKindForecast, key, &cached) {
		return &cached, nil
	}

	hourly, err := s.client.FetchHourly(ctx, coords, snapshot.UTCOffsetSeconds)
	if err != nil {
		return nil, fmt.Errorf("fetch hourly forecast for %s: %w", snapshot.ID, err)
	}

	s.cache.Put(ctx, key, hourly)
	return hourly, nil
}

// Weekly returns up to seven daily rows for the snapshot's location
func (s *Service) Weekly(ctx context.Context, snapshot *Snapshot) (*ports.WeeklyForecast, error) {
	if snapshot == nil {
		return nil, errors.NewValidationError("Missing card")
	}
	coords, ok := snapshot.Coordinates()
	if !ok {
		return nil, errors.NewMissingLocationError("weekly forecast is nowhere to be seen")
	}

	var cached ports.WeeklyForecast
	key := WeeklyKey(coords)
	if s.cache.Get(ctx, CacheKindWeekly, key, &cached) {
		return &cached, nil
	}

	weekly, err := s.client.FetchWeekly(ctx, coords, snapshot.UTCOffsetSeconds)
	if err != nil {
		return nil, fmt.Errorf("fetch weekly forecast for %s: %w", snapshot.ID, err)
	}

	s.cache.Put(ctx, key, weekly)
	return weekly, nil
}
