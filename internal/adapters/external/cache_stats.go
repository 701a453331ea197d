package external

import (
	"sync"
	"time"

	"weatherdash.app/internal/ports"
)

// hitCounter implements ports.CacheMetrics for the cache backends
type hitCounter struct {
	mu     sync.Mutex
	hits   int64
	misses int64
}

func (h *hitCounter) RecordHit() {
	h.mu.Lock()
	h.hits++
	h.mu.Unlock()
}

func (h *hitCounter) RecordMiss() {
	h.mu.Lock()
	h.misses++
	h.mu.Unlock()
}

func (h *hitCounter) GetStats() ports.CacheStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := ports.CacheStats{
		Hits:        h.hits,
		Misses:      h.misses,
		TotalOps:    h.hits + h.misses,
		LastUpdated: time.Now(),
	}
	if stats.TotalOps > 0 {
		stats.HitRatio = float64(h.hits) / float64(stats.TotalOps)
	}
	return stats
}
