package external

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

const (
	defaultOpenWeatherMapBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultRequestTimeout        = 10 * time.Second
	defaultBreakerMaxFailures    = 5
	maxResponseBytes             = 4 << 20

	endpointCurrent  = "weather"
	endpointForecast = "forecast"
	endpointOneCall  = "onecall"

	oneCallExclude = "current,minutely,hourly,alerts"

	// noResponseMessage is shown when the provider never answered
	noResponseMessage = "API ERROR"
)

// HTTPClient is the subset of *http.Client used by the weather client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenWeatherMapClient implements the WeatherClient port for OpenWeatherMap
type OpenWeatherMapClient struct {
	apiKey  string
	baseURL string
	client  HTTPClient
	breaker *gobreaker.CircuitBreaker
	logger  ports.Logger
	metrics ports.MetricsCollector
}

// OpenWeatherMapClientParams holds parameters for creating the OpenWeatherMap client
type OpenWeatherMapClientParams struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxFailures int
	// HTTPClient overrides the default client built from Timeout
	HTTPClient HTTPClient
	Logger     ports.Logger
	Metrics    ports.MetricsCollector
}

// NewOpenWeatherMapClient creates a new OpenWeatherMap client
func NewOpenWeatherMapClient(params OpenWeatherMapClientParams) (*OpenWeatherMapClient, error) {
	if params.APIKey == "" {
		return nil, errors.NewConfigurationError("OpenWeatherMap API key is required", nil)
	}
	if params.Logger == nil {
		return nil, errors.NewConfigurationError("logger is required", nil)
	}
	if params.Metrics == nil {
		return nil, errors.NewConfigurationError("metrics collector is required", nil)
	}

	baseURL := strings.TrimRight(params.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenWeatherMapBaseURL
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	maxFailures := params.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultBreakerMaxFailures
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			params.Logger.Warn("Weather provider circuit changed state",
				ports.F("breaker", name),
				ports.F("from", from.String()),
				ports.F("to", to.String()))
		},
	})

	return &OpenWeatherMapClient{
		apiKey:  params.APIKey,
		baseURL: baseURL,
		client:  httpClient,
		breaker: breaker,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// ProviderName returns the name of this weather provider
func (c *OpenWeatherMapClient) ProviderName() string {
	return "openweathermap"
}

// FetchCurrent retrieves current conditions for a city name
func (c *OpenWeatherMapClient) FetchCurrent(ctx context.Context, city string) (*ports.CurrentWeather, error) {
	if strings.TrimSpace(city) == "" {
		return nil, errors.NewValidationError("Missing city")
	}

	body, err := c.get(ctx, endpointCurrent, url.Values{"q": {city}})
	if err != nil {
		return nil, err
	}

	var payload owmCurrentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewMalformedDataError("unexpected current weather payload", err)
	}
	if payload.Name == "" {
		return nil, errors.NewMalformedDataError("current weather payload has no city name", nil)
	}

	current := &ports.CurrentWeather{
		Name: payload.Name,
		Raw:  json.RawMessage(body),
	}
	if payload.Sys != nil {
		current.Country = payload.Sys.Country
	}
	if payload.Main != nil {
		current.Temperature = payload.Main.Temp.Ptr()
		current.FeelsLike = payload.Main.FeelsLike.Ptr()
		current.TempMin = payload.Main.TempMin.Ptr()
		current.TempMax = payload.Main.TempMax.Ptr()
	}
	if len(payload.Weather) > 0 {
		current.Description = payload.Weather[0].Description
		current.Icon = payload.Weather[0].Icon
	}
	if offset := payload.Timezone.Ptr(); offset != nil {
		current.UTCOffsetSeconds = int(*offset)
	}

	return current, nil
}

// FetchHourly retrieves the 3-hour forecast series at a location.
// Times are rendered in the city's zone, using fallbackUTCOffset when the
// provider does not report one.
func (c *OpenWeatherMapClient) FetchHourly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.HourlyForecast, error) {
	payload, err := c.fetchForecast(ctx, coords)
	if err != nil {
		return nil, err
	}

	offset := payload.utcOffset(fallbackUTCOffset)
	zone := time.FixedZone("", offset)

	hourly := &ports.HourlyForecast{
		Labels:           make([]string, 0, len(payload.List)),
		Temps:            make([]*float64, 0, len(payload.List)),
		Points:           make([]ports.HourlyPoint, 0, len(payload.List)),
		UTCOffsetSeconds: offset,
	}
	for _, step := range payload.List {
		local := time.Unix(step.Dt, 0).In(zone)
		label := local.Format("15:04")
		var temp *float64
		if step.Main != nil {
			temp = step.Main.Temp.Ptr()
		}

		hourly.Labels = append(hourly.Labels, label)
		hourly.Temps = append(hourly.Temps, temp)
		hourly.Points = append(hourly.Points, ports.HourlyPoint{
			Timestamp: step.Dt,
			LocalTime: local.Format("2006-01-02 15:04"),
			Label:     label,
			TempC:     temp,
		})
	}

	return hourly, nil
}

// FetchWeekly retrieves up to seven daily rows. The one-call endpoint is
// tried first; any failure there falls back to aggregating the 3-hour
// forecast by local calendar day.
func (c *OpenWeatherMapClient) FetchWeekly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.WeeklyForecast, error) {
	weekly, err := c.fetchDaily(ctx, coords, fallbackUTCOffset)
	if err == nil {
		return weekly, nil
	}

	c.logger.Warn("Daily forecast unavailable, aggregating 3-hour forecast",
		ports.F("lat", coords.Lat),
		ports.F("lon", coords.Lon),
		ports.F("error", err))
	c.metrics.RecordWeeklyFallback()

	payload, fallbackErr := c.fetchForecast(ctx, coords)
	if fallbackErr != nil {
		c.logger.Error("Fallback forecast failed",
			ports.F("lat", coords.Lat),
			ports.F("lon", coords.Lon),
			ports.F("error", fallbackErr))
		return nil, fallbackErr
	}

	return &ports.WeeklyForecast{
		Days:   AggregateDaily(payload.steps(), payload.utcOffset(fallbackUTCOffset), maxWeeklyDays),
		Source: ports.WeeklySourceAggregate,
	}, nil
}

func (c *OpenWeatherMapClient) fetchDaily(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.WeeklyForecast, error) {
	params := coordinateParams(coords)
	params.Set("exclude", oneCallExclude)

	body, err := c.get(ctx, endpointOneCall, params)
	if err != nil {
		return nil, err
	}

	var payload owmOneCallPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewMalformedDataError("unexpected daily forecast payload", err)
	}

	offset := fallbackUTCOffset
	if v := payload.TimezoneOffset.Ptr(); v != nil {
		offset = int(*v)
	}
	zone := time.FixedZone("", offset)

	daily := payload.Daily
	if len(daily) > maxWeeklyDays {
		daily = daily[:maxWeeklyDays]
	}

	days := make([]ports.DailyForecast, 0, len(daily))
	for _, d := range daily {
		day := ports.DailyForecast{
			Timestamp: d.Dt,
			Weekday:   FormatWeekday(time.Unix(d.Dt, 0).In(zone)),
		}
		if len(d.Weather) > 0 {
			day.Icon = d.Weather[0].Icon
			day.Desc = d.Weather[0].Description
		}
		if d.Temp != nil {
			day.TempMin = d.Temp.Min.Ptr()
			day.TempMax = d.Temp.Max.Ptr()
		}
		days = append(days, day)
	}

	return &ports.WeeklyForecast{Days: days, Source: ports.WeeklySourceDaily}, nil
}

func (c *OpenWeatherMapClient) fetchForecast(ctx context.Context, coords ports.Coordinates) (*owmForecastPayload, error) {
	body, err := c.get(ctx, endpointForecast, coordinateParams(coords))
	if err != nil {
		return nil, err
	}

	var payload owmForecastPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewMalformedDataError("unexpected forecast payload", err)
	}
	if payload.List == nil {
		return nil, errors.NewMalformedDataError("forecast payload has no list", nil)
	}

	return &payload, nil
}

type providerResponse struct {
	status int
	body   []byte
}

// get performs one GET against endpoint through the circuit breaker and
// returns the body of a 2xx response
func (c *OpenWeatherMapClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		c.metrics.RecordWeatherAPICall(endpoint, false)
		return nil, errors.NewUnknownError("Request error", err)
	}

	c.logger.Debug("Calling weather provider", ports.F("endpoint", endpoint))

	var resp providerResponse
	_, err = c.breaker.Execute(func() (interface{}, error) {
		httpResp, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer func() {
			if closeErr := httpResp.Body.Close(); closeErr != nil {
				c.logger.Warn("Failed to close weather provider response body", ports.F("error", closeErr))
			}
		}()

		body, readErr := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if readErr != nil {
			return nil, readErr
		}
		resp = providerResponse{status: httpResp.StatusCode, body: body}

		// only server-side failures count against the breaker
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("weather provider returned status %d", httpResp.StatusCode)
		}
		return nil, nil
	})

	if resp.status == 0 {
		c.metrics.RecordWeatherAPICall(endpoint, false)
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("Weather provider circuit is open", ports.F("endpoint", endpoint))
		}
		return nil, errors.NewNetworkError(noResponseMessage, err)
	}

	if resp.status < 200 || resp.status >= 300 {
		c.metrics.RecordWeatherAPICall(endpoint, false)
		return nil, errors.NewAPIError(resp.status, providerErrorMessage(resp))
	}

	c.metrics.RecordWeatherAPICall(endpoint, true)
	return resp.body, nil
}

func providerErrorMessage(resp providerResponse) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("API error %d", resp.status)
}

func coordinateParams(coords ports.Coordinates) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(coords.Lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(coords.Lon, 'f', -1, 64)},
	}
}
