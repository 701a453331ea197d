package infrastructure

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsCollector implements the MetricsCollector port.
// Counters are registered on the given registry so tests can use a fresh one.
type PrometheusMetricsCollector struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheHitRatio  *prometheus.GaugeVec
	apiCalls       *prometheus.CounterVec
	weeklyFallback prometheus.Counter
	staleResults   *prometheus.CounterVec
	searches       *prometheus.CounterVec

	mu     sync.Mutex
	counts map[string]*cacheCounts
}

type cacheCounts struct {
	hits   int64
	misses int64
}

// NewPrometheusMetricsCollector registers dashboard metrics on registerer
func NewPrometheusMetricsCollector(registerer prometheus.Registerer) *PrometheusMetricsCollector {
	factory := promauto.With(registerer)

	return &PrometheusMetricsCollector{
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_cache_hits_total",
				Help: "The total number of response cache hits",
			},
			[]string{"kind"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_cache_misses_total",
				Help: "The total number of response cache misses",
			},
			[]string{"kind"},
		),
		cacheHitRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "weatherdash_cache_hit_ratio",
				Help: "Response cache hit ratio (hits/total lookups)",
			},
			[]string{"kind"},
		),
		apiCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_weather_api_calls_total",
				Help: "Weather provider calls by endpoint and outcome",
			},
			[]string{"endpoint", "success"},
		),
		weeklyFallback: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "weatherdash_weekly_fallback_total",
				Help: "Weekly forecasts served by aggregating the 3-hour forecast",
			},
		),
		staleResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_stale_panel_results_total",
				Help: "Panel fetch results discarded because the panel moved on",
			},
			[]string{"panel"},
		),
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weatherdash_searches_total",
				Help: "Searches by trigger",
			},
			[]string{"trigger"},
		),
		counts: make(map[string]*cacheCounts),
	}
}

func (m *PrometheusMetricsCollector) RecordCacheHit(kind string) {
	m.cacheHits.WithLabelValues(kind).Inc()
	m.updateHitRatio(kind, true)
}

func (m *PrometheusMetricsCollector) RecordCacheMiss(kind string) {
	m.cacheMisses.WithLabelValues(kind).Inc()
	m.updateHitRatio(kind, false)
}

func (m *PrometheusMetricsCollector) RecordWeatherAPICall(endpoint string, success bool) {
	m.apiCalls.WithLabelValues(endpoint, strconv.FormatBool(success)).Inc()
}

func (m *PrometheusMetricsCollector) RecordWeeklyFallback() {
	m.weeklyFallback.Inc()
}

func (m *PrometheusMetricsCollector) RecordStaleResult(panel string) {
	m.staleResults.WithLabelValues(panel).Inc()
}

func (m *PrometheusMetricsCollector) RecordSearch(trigger string) {
	m.searches.WithLabelValues(trigger).Inc()
}

func (m *PrometheusMetricsCollector) updateHitRatio(kind string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counts[kind]
	if !ok {
		c = &cacheCounts{}
		m.counts[kind] = c
	}
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	m.cacheHitRatio.WithLabelValues(kind).Set(float64(c.hits) / float64(c.hits+c.misses))
}

// GetStats returns per-kind cache counters for the JSON metrics endpoint
func (m *PrometheusMetricsCollector) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]interface{}, len(m.counts))
	for kind, c := range m.counts {
		total := c.hits + c.misses
		ratio := float64(0)
		if total > 0 {
			ratio = float64(c.hits) / float64(total)
		}
		stats[kind] = map[string]interface{}{
			"hits":      c.hits,
			"misses":    c.misses,
			"total":     total,
			"hit_ratio": ratio,
		}
	}
	return stats
}
