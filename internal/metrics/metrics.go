package metrics

import (
	"sync"
	"time"
)

// Metrics collects ingestion counters for the monitoring endpoint. One
// instance is constructed in wiring and shared by reference.
type Metrics struct {
	mu sync.RWMutex

	storiesIngested   int64
	duplicatesRemoved int64
	sourceFailures    int64
	runs              int64

	lastRunTime     time.Time
	lastRunDuration time.Duration
	lastError       string
	lastErrorTime   time.Time
	healthy         bool
}

// New returns an empty, healthy metrics instance.
func New() *Metrics {
	return &Metrics{healthy: true}
}

// RecordRun captures the outcome of one ingestion run.
func (m *Metrics) RecordRun(ingested, duplicates, failures int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs++
	m.storiesIngested += int64(ingested)
	m.duplicatesRemoved += int64(duplicates)
	m.sourceFailures += int64(failures)
	m.lastRunTime = time.Now()
	m.lastRunDuration = elapsed
	m.healthy = true
}

// RecordError marks the pipeline unhealthy with the failure reason.
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err.Error()
	m.lastErrorTime = time.Now()
	m.healthy = false
}

// Healthy reports whether the last run completed.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// Stats returns a snapshot for the monitoring endpoint.
func (m *Metrics) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"runs":                 m.runs,
		"stories_ingested":     m.storiesIngested,
		"duplicates_removed":   m.duplicatesRemoved,
		"source_failures":      m.sourceFailures,
		"last_run_time":        m.lastRunTime.Format(time.RFC3339),
		"last_run_duration_ms": m.lastRunDuration.Milliseconds(),
		"last_error":           m.lastError,
		"last_error_time":      m.lastErrorTime.Format(time.RFC3339),
		"is_healthy":           m.healthy,
	}
}
