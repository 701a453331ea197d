package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"weatherdash.app/internal/ports"
)

// Snapshot is one city's current conditions at fetch time.
// The JSON shape is also the persisted favorites format.
type Snapshot struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Country          string          `json:"country"`
	TemperatureC     *float64        `json:"temp"`
	FeelsLikeC       *float64        `json:"feels_like,omitempty"`
	TempMinC         *float64        `json:"temp_min,omitempty"`
	TempMaxC         *float64        `json:"temp_max,omitempty"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
	UTCOffsetSeconds int             `json:"timezone"`
	FetchedAt        int64           `json:"fetchedAt"`
}

// DeriveID builds the stable card key from a city name and country code
func DeriveID(name, country string) string {
	return name + "-" + country
}

// NewSnapshot converts a provider response into a snapshot fetched at now
func NewSnapshot(current *ports.CurrentWeather, now time.Time) *Snapshot {
	return &Snapshot{
		ID:               DeriveID(current.Name, current.Country),
		Name:             current.Name,
		Country:          current.Country,
		TemperatureC:     current.Temperature,
		FeelsLikeC:       current.FeelsLike,
		TempMinC:         current.TempMin,
		TempMaxC:         current.TempMax,
		Description:      current.Description,
		Icon:             current.Icon,
		Raw:              current.Raw,
		UTCOffsetSeconds: current.UTCOffsetSeconds,
		FetchedAt:        now.UnixMilli(),
	}
}

// Clone returns a copy that shares no mutable state with s
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Raw != nil {
		c.Raw = append(json.RawMessage(nil), s.Raw...)
	}
	return &c
}

// Conditions are the raw-payload fields that are not hoisted onto the snapshot
type Conditions struct {
	Coordinates *ports.Coordinates
	FeelsLike   *float64
	TempMin     *float64
	TempMax     *float64
	Humidity    *float64
	Pressure    *float64
	WindSpeed   *float64
	Visibility  *float64
	UTCOffset   *int
}

type rawPayload struct {
	Coord *struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
	Timezone   *float64 `json:"timezone"`
}

// Conditions reads the raw payload. Missing or mistyped fields stay nil.
func (s *Snapshot) Conditions() Conditions {
	var cond Conditions
	if s == nil || len(s.Raw) == 0 {
		return cond
	}

	var raw rawPayload
	if err := json.Unmarshal(s.Raw, &raw); err != nil {
		return cond
	}

	if raw.Coord != nil && raw.Coord.Lat != nil && raw.Coord.Lon != nil {
		cond.Coordinates = &ports.Coordinates{Lat: *raw.Coord.Lat, Lon: *raw.Coord.Lon}
	}
	if raw.Main != nil {
		cond.FeelsLike = raw.Main.FeelsLike
		cond.TempMin = raw.Main.TempMin
		cond.TempMax = raw.Main.TempMax
		cond.Humidity = raw.Main.Humidity
		cond.Pressure = raw.Main.Pressure
	}
	if raw.Wind != nil {
		cond.WindSpeed = raw.Wind.Speed
	}
	cond.Visibility = raw.Visibility
	if raw.Timezone != nil {
		offset := int(*raw.Timezone)
		cond.UTCOffset = &offset
	}
	return cond
}

// Coordinates returns the city location, if the raw payload carries one
func (s *Snapshot) Coordinates() (ports.Coordinates, bool) {
	cond := s.Conditions()
	if cond.Coordinates == nil {
		return ports.Coordinates{}, false
	}
	return *cond.Coordinates, true
}

// LocalTime converts an instant to the city's wall clock
func (s *Snapshot) LocalTime(t time.Time) time.Time {
	return t.In(time.FixedZone("", s.UTCOffsetSeconds))
}

// QuickStats is the quick-stats panel content. Missing values render as "-".
type QuickStats struct {
	FeelsLike  string `json:"feels_like"`
	TempMin    string `json:"temp_min"`
	TempMax    string `json:"temp_max"`
	Humidity   string `json:"humidity"`
	Pressure   string `json:"pressure"`
	WindSpeed  string `json:"wind_speed"`
	Visibility string `json:"visibility"`
}

const (
	missingValue         = "-"
	unlimitedVisibilityM = 10000
)

// BuildQuickStats renders the quick-stats strip for a snapshot
func BuildQuickStats(s *Snapshot) QuickStats {
	cond := s.Conditions()
	return QuickStats{
		FeelsLike:  FormatTemperature(firstPresent(s.FeelsLikeC, cond.FeelsLike)),
		TempMin:    FormatTemperature(firstPresent(s.TempMinC, cond.TempMin)),
		TempMax:    FormatTemperature(firstPresent(s.TempMaxC, cond.TempMax)),
		Humidity:   formatWithUnit(cond.Humidity, "%"),
		Pressure:   formatWithUnit(cond.Pressure, " hPa"),
		WindSpeed:  formatWithUnit(cond.WindSpeed, " m/s"),
		Visibility: FormatVisibility(cond.Visibility),
	}
}

// FormatTemperature renders one decimal, e.g. "12.3°C"
func FormatTemperature(v *float64) string {
	if v == nil {
		return missingValue
	}
	return fmt.Sprintf("%.1f°C", *v)
}

// FormatVisibility renders meters, with 10 km and above shown as "Unlimited"
func FormatVisibility(v *float64) string {
	if v == nil {
		return missingValue
	}
	if *v >= unlimitedVisibilityM {
		return "Unlimited"
	}
	return formatNumber(*v) + " m"
}

// RoundedTemperature renders the card headline temperature, e.g. "12°C".
// Halves round up, so -2.5 becomes -2.
func RoundedTemperature(v *float64) string {
	if v == nil {
		return missingValue
	}
	return fmt.Sprintf("%d°C", int(math.Floor(*v+0.5)))
}

// IconURL builds the provider icon address for a size like "2x" or "4x"
func IconURL(baseURL, iconCode, size string) string {
	if iconCode == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s@%s.png", strings.TrimRight(baseURL, "/"), iconCode, size)
}

func formatWithUnit(v *float64, unit string) string {
	if v == nil {
		return missingValue
	}
	return formatNumber(*v) + unit
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstPresent(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
