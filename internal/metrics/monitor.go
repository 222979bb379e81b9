// Package metrics records per-provider invocation telemetry. The record log
// is append-only and grows for the process lifetime; statistics are derived
// views computed on demand.
package metrics

import (
	"sync"
	"time"

	"github.com/omnisearch/omnisearch/internal/search"
)

// recentErrorCount is how many recent failures stats() surfaces verbatim.
const recentErrorCount = 5

// Monitor is a concurrent-safe, append-only invocation log.
type Monitor struct {
	mu      sync.Mutex
	records []search.InvocationRecord
	queries int
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Record appends one invocation record. Safe under concurrent writers.
func (m *Monitor) Record(record search.InvocationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// RecordQuery counts one top-level search request.
func (m *Monitor) RecordQuery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
}

// Stats recomputes the aggregate view from the record log. Readers tolerate
// a slightly stale snapshot; the lock is held only while copying.
func (m *Monitor) Stats() search.Stats {
	m.mu.Lock()
	records := make([]search.InvocationRecord, len(m.records))
	copy(records, m.records)
	queries := m.queries
	m.mu.Unlock()

	stats := search.Stats{
		TotalQueries: queries,
		PerProvider:  make(map[string]search.ProviderStats),
	}

	totals := make(map[string]time.Duration)
	for _, r := range records {
		ps := stats.PerProvider[r.Provider]
		ps.Invocations++
		totals[r.Provider] += r.Duration
		if r.Success {
			stats.Successes++
		} else {
			stats.Failures++
			ps.Failures++
		}
		stats.PerProvider[r.Provider] = ps
	}

	for id, ps := range stats.PerProvider {
		if ps.Invocations > 0 {
			ps.AvgLatency = totals[id] / time.Duration(ps.Invocations)
			stats.PerProvider[id] = ps
		}
	}

	if total := stats.Successes + stats.Failures; total > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(total)
	}

	for i := len(records) - 1; i >= 0 && len(stats.RecentErrors) < recentErrorCount; i-- {
		if !records[i].Success {
			stats.RecentErrors = append(stats.RecentErrors, records[i].Error)
		}
	}

	return stats
}
