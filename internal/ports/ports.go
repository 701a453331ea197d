package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Weather
	WeatherClient WeatherClient

	// Cache
	CacheProvider CacheProvider
	CacheMetrics  CacheMetrics

	// Persistence
	Storage KeyValueStore

	// Infrastructure
	Logger  Logger
	Metrics MetricsCollector
}
