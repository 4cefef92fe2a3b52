package memory

import (
	"sync"
	"time"
)

const thresholdCacheTTL = 60 * time.Second

// thresholdCache holds each project's adaptive confidence threshold for up
// to 60s (spec.md §4.5), guarded by a single coarse mutex — contention here
// is not a concern, computing a fresh value is a pair of collection scrolls.
type thresholdCache struct {
	mu      sync.Mutex
	entries map[string]thresholdEntry
}

type thresholdEntry struct {
	value     float64
	expiresAt time.Time
}

func newThresholdCache() *thresholdCache {
	return &thresholdCache{entries: make(map[string]thresholdEntry)}
}

func (t *thresholdCache) get(project string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[project]
	if !ok || time.Now().After(e.expiresAt) {
		return 0, false
	}
	return e.value, true
}

func (t *thresholdCache) set(project string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[project] = thresholdEntry{value: value, expiresAt: time.Now().Add(thresholdCacheTTL)}
}

func (t *thresholdCache) invalidate(project string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, project)
}

// computeThreshold applies spec.md §4.5's formula: cold-start 0.5 below 5
// total records, otherwise clamp(0.8 - 0.4*successRate, 0.4, 0.8).
func computeThreshold(durableAuto, quarantine int64) float64 {
	total := durableAuto + quarantine
	if total < 5 {
		return 0.5
	}
	successRate := float64(durableAuto) / float64(total)
	t := 0.8 - 0.4*successRate
	switch {
	case t < 0.4:
		return 0.4
	case t > 0.8:
		return 0.8
	default:
		return t
	}
}
