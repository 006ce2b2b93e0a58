package observability

import (
	"sync"
	"time"
)

type routeStats struct {
	count         int64
	totalDuration time.Duration
}

// Metrics keeps in-process request and error counters keyed by route. Enough
// for the health of a single instance; anything fleet-wide reads the logs.
type Metrics struct {
	mu     sync.Mutex
	routes map[string]*routeStats
	errors map[string]int64
}

// NewMetrics initializes empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		routes: make(map[string]*routeStats),
		errors: make(map[string]int64),
	}
}

// RecordRequest accounts one served request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := method + " " + path
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.routes[key]
	if !ok {
		stats = &routeStats{}
		m.routes[key] = stats
	}
	stats.count++
	stats.totalDuration += duration
}

// RecordError accounts one request that resolved to an error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method+" "+path+" "+code]++
}
