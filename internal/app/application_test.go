package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weatherdash.app/internal/adapters/external"
	"weatherdash.app/internal/config"
	"weatherdash.app/internal/mocks"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Weather: config.WeatherConfig{
			APIKey:                "test-key",
			BaseURL:               "https://api.openweathermap.org/data/2.5",
			IconBaseURL:           "https://openweathermap.org/img/wn",
			RequestTimeoutSeconds: 5,
			BreakerMaxFailures:    5,
		},
		Dashboard: config.DashboardConfig{
			DebounceMillis:       100,
			MinQueryLength:       2,
			DefaultViewportWidth: 1200,
		},
		Cache:   config.CacheConfig{Type: config.CacheTypeMemory},
		Storage: config.StorageConfig{Type: config.StorageTypeMemory},
		Logging: config.LoggingConfig{Backend: "slog", Level: "info"},
	}
}

func TestNewApplication_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_API_KEY", "")

	app, err := NewApplication()
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestNewApplication_FromEnvironment(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_API_KEY", "test-api-key")
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("CACHE_TYPE", "memory")
	t.Setenv("WEATHER_ENABLE_LOGGING", "false")
	t.Setenv("LOG_BACKEND", "zap")
	t.Setenv("LOG_LEVEL", "warn")

	app, err := NewApplication()
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.Equal(t, "test-api-key", app.Config().Weather.APIKey)
	assert.NotNil(t, app.GetRouter())
	assert.NotNil(t, app.GetWeatherService())
	assert.Equal(t, 0, app.GetSessionManager().Count())

	assert.NoError(t, app.Shutdown(context.Background()))
}

func TestDependencyContainer_MemoryBackends(t *testing.T) {
	client := mocks.NewWeatherClient(t)

	deps, err := NewDependencyContainer(testConfig(t), DependencyOptions{
		WeatherClient: client,
		LogOutput:     io.Discard,
	})
	require.NoError(t, err)

	p := deps.ApplicationPorts()
	assert.Same(t, client, p.WeatherClient)
	assert.NotNil(t, p.Storage)
	assert.NotNil(t, p.CacheProvider)
	assert.NotNil(t, p.CacheMetrics)
	assert.NotNil(t, p.Logger)
	assert.NotNil(t, p.Metrics)
	assert.Nil(t, deps.Database())

	checkers := deps.HealthCheckers()
	assert.Contains(t, checkers, "cache")
	assert.Contains(t, checkers, "weatherAPI")
	assert.NotContains(t, checkers, "database")

	assert.NoError(t, deps.Cleanup())
}

func TestDependencyContainer_SQLiteStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.StorageConfig{
		Type:       config.StorageTypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "data", "dashboard.db"),
	}

	deps, err := NewDependencyContainer(cfg, DependencyOptions{
		WeatherClient: mocks.NewWeatherClient(t),
		LogOutput:     io.Discard,
	})
	require.NoError(t, err)

	require.NotNil(t, deps.Database())
	assert.Contains(t, deps.HealthCheckers(), "database")

	status := deps.HealthCheckers()["database"].Check(context.Background())
	assert.Equal(t, "healthy", status.Status)

	assert.NoError(t, deps.Cleanup())
}

func TestDependencyContainer_BuildsLoggedProviderClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Weather.EnableLogging = true
	cfg.Weather.LogFilePath = filepath.Join(t.TempDir(), "logs", "weather_provider.log")

	deps, err := NewDependencyContainer(cfg, DependencyOptions{LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Cleanup() })

	client := deps.ApplicationPorts().WeatherClient
	assert.IsType(t, &external.WeatherClientLoggingDecorator{}, client)
	assert.Equal(t, "logged(openweathermap)", client.ProviderName())
	assert.FileExists(t, cfg.Weather.LogFilePath)
}

func TestDependencyContainer_InvalidLogBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Backend = "syslog"

	deps, err := NewDependencyContainer(cfg, DependencyOptions{LogOutput: io.Discard})
	assert.Error(t, err)
	assert.Nil(t, deps)
}

func TestApplication_ServesHealthAndSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client := mocks.NewWeatherClient(t)
	client.On("ProviderName").Return("mock")

	cfg := testConfig(t)
	deps, err := NewDependencyContainer(cfg, DependencyOptions{
		WeatherClient: client,
		LogOutput:     io.Discard,
	})
	require.NoError(t, err)

	app, err := NewApplicationWithDependencies(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	w := httptest.NewRecorder()
	app.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Components, "cache")
	assert.Contains(t, health.Components, "weatherAPI")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"viewport_width":800}`))
	req.Header.Set("Content-Type", "application/json")
	app.GetRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var state struct {
		SessionID     string `json:"session_id"`
		FavoriteLimit int    `json:"favorite_limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, 2, state.FavoriteLimit)
	assert.Equal(t, 1, app.GetSessionManager().Count())

	w = httptest.NewRecorder()
	app.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
