package ports

import (
	"context"
	"encoding/json"
)

// Coordinates is a point on the globe in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentWeather is the normalized current-conditions response for one city
type CurrentWeather struct {
	Name             string
	Country          string
	Temperature      *float64
	FeelsLike        *float64
	TempMin          *float64
	TempMax          *float64
	Description      string
	Icon             string
	UTCOffsetSeconds int
	// Raw is the provider payload, kept for fields that are not hoisted
	Raw json.RawMessage
}

// HourlyPoint is one 3-hour forecast step in the city's local time
type HourlyPoint struct {
	Timestamp int64    `json:"dt"`
	LocalTime string   `json:"local_time"`
	Label     string   `json:"label"`
	TempC     *float64 `json:"temp"`
}

// HourlyForecast is the normalized chart series for the hourly panel
type HourlyForecast struct {
	Labels           []string      `json:"labels"`
	Temps            []*float64    `json:"temps"`
	Points           []HourlyPoint `json:"points"`
	UTCOffsetSeconds int           `json:"utc_offset_seconds"`
}

// DailyForecast is one row of the weekly panel
type DailyForecast struct {
	Timestamp int64    `json:"dt"`
	Weekday   string   `json:"weekday"`
	Icon      string   `json:"icon,omitempty"`
	Desc      string   `json:"desc"`
	TempMin   *float64 `json:"tempMin"`
	TempMax   *float64 `json:"tempMax"`
}

// Weekly forecast sources
const (
	WeeklySourceDaily     = "daily"
	WeeklySourceAggregate = "forecast-aggregate"
)

// WeeklyForecast holds at most seven days
type WeeklyForecast struct {
	Days   []DailyForecast `json:"days"`
	Source string          `json:"source"`
}

// WeatherClient defines the contract for the weather provider request layer
type WeatherClient interface {
	FetchCurrent(ctx context.Context, city string) (*CurrentWeather, error)
	FetchHourly(ctx context.Context, coords Coordinates, fallbackUTCOffset int) (*HourlyForecast, error)
	FetchWeekly(ctx context.Context, coords Coordinates, fallbackUTCOffset int) (*WeeklyForecast, error)
	ProviderName() string
}
