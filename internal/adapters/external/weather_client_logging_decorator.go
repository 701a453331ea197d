package external

import (
	"context"
	"time"

	"weatherdash.app/internal/ports"
)

// WeatherClientLoggingDecorator decorates a weather client with structured logging
type WeatherClientLoggingDecorator struct {
	client ports.WeatherClient
	logger ports.Logger
}

// NewWeatherClientLoggingDecorator creates a new logging decorator for a weather client
func NewWeatherClientLoggingDecorator(client ports.WeatherClient, logger ports.Logger) ports.WeatherClient {
	return &WeatherClientLoggingDecorator{
		client: client,
		logger: logger,
	}
}

// FetchCurrent wraps the current-weather call with structured logging
func (d *WeatherClientLoggingDecorator) FetchCurrent(ctx context.Context, city string) (*ports.CurrentWeather, error) {
	done := d.start("current", ports.F("city", city))

	current, err := d.client.FetchCurrent(ctx, city)
	if err != nil {
		done(err)
		return nil, err
	}

	done(nil,
		ports.F("temperature", current.Temperature),
		ports.F("description", current.Description))
	return current, nil
}

// FetchHourly wraps the hourly call with structured logging
func (d *WeatherClientLoggingDecorator) FetchHourly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.HourlyForecast, error) {
	done := d.start("hourly", ports.F("lat", coords.Lat), ports.F("lon", coords.Lon))

	hourly, err := d.client.FetchHourly(ctx, coords, fallbackUTCOffset)
	if err != nil {
		done(err)
		return nil, err
	}

	done(nil, ports.F("points", len(hourly.Points)))
	return hourly, nil
}

// FetchWeekly wraps the weekly call with structured logging
func (d *WeatherClientLoggingDecorator) FetchWeekly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.WeeklyForecast, error) {
	done := d.start("weekly", ports.F("lat", coords.Lat), ports.F("lon", coords.Lon))

	weekly, err := d.client.FetchWeekly(ctx, coords, fallbackUTCOffset)
	if err != nil {
		done(err)
		return nil, err
	}

	done(nil, ports.F("days", len(weekly.Days)), ports.F("source", weekly.Source))
	return weekly, nil
}

// ProviderName returns the name of the wrapped client with logging indication
func (d *WeatherClientLoggingDecorator) ProviderName() string {
	return "logged(" + d.client.ProviderName() + ")"
}

// start logs the request and returns a func that logs its outcome
func (d *WeatherClientLoggingDecorator) start(kind string, fields ...ports.Field) func(err error, result ...ports.Field) {
	providerName := d.client.ProviderName()
	base := joinFields([]ports.Field{
		ports.F("provider", providerName),
		ports.F("kind", kind),
	}, fields...)

	d.logger.Info("Weather API request started", joinFields(base, ports.F("event", "request"))...)
	startTime := time.Now()

	return func(err error, result ...ports.Field) {
		duration := ports.F("duration_ms", time.Since(startTime).Milliseconds())
		if err != nil {
			d.logger.Error("Weather API request failed",
				joinFields(base, ports.F("event", "error"), duration, ports.F("error", err.Error()))...)
			return
		}
		out := joinFields(base, ports.F("event", "response"), duration)
		d.logger.Info("Weather API request completed", joinFields(out, result...)...)
	}
}

func joinFields(base []ports.Field, extra ...ports.Field) []ports.Field {
	joined := make([]ports.Field, 0, len(base)+len(extra))
	joined = append(joined, base...)
	return append(joined, extra...)
}
