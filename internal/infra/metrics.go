package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight relay counters without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	pollsTotal      atomic.Uint64
	pollsSkipped    atomic.Uint64
	broadcastsTotal atomic.Uint64
	fetchErrors     atomic.Uint64
	cacheFallbacks  atomic.Uint64
	cacheWrites     atomic.Uint64
	terminatedConns atomic.Uint64
	sendErrors      atomic.Uint64

	// Poll latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	lastBroadcastUnix atomic.Int64
}

// RecordPoll records a finished poll cycle with its latency.
func (m *Metrics) RecordPoll(latency time.Duration) {
	m.pollsTotal.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordPollSkipped records a tick dropped because a cycle was still running.
func (m *Metrics) RecordPollSkipped() {
	m.pollsSkipped.Add(1)
}

// RecordBroadcast records a message handed to the broadcasters.
func (m *Metrics) RecordBroadcast(at time.Time) {
	m.broadcastsTotal.Add(1)
	m.lastBroadcastUnix.Store(at.Unix())
}

func (m *Metrics) RecordFetchError()    { m.fetchErrors.Add(1) }
func (m *Metrics) RecordCacheFallback() { m.cacheFallbacks.Add(1) }
func (m *Metrics) RecordCacheWrite()    { m.cacheWrites.Add(1) }
func (m *Metrics) RecordSendError()     { m.sendErrors.Add(1) }

// RecordTerminated records a connection reaped by the liveness check.
func (m *Metrics) RecordTerminated() {
	m.terminatedConns.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	PollsTotal        uint64    `json:"polls_total"`
	PollsSkipped      uint64    `json:"polls_skipped"`
	BroadcastsTotal   uint64    `json:"broadcasts_total"`
	FetchErrors       uint64    `json:"fetch_errors"`
	CacheFallbacks    uint64    `json:"cache_fallbacks"`
	CacheWrites       uint64    `json:"cache_writes"`
	TerminatedConns   uint64    `json:"terminated_connections"`
	SendErrors        uint64    `json:"send_errors"`
	AvgPollLatencyNs  int64     `json:"avg_poll_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	LastBroadcastUnix int64     `json:"last_broadcast_unix"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		PollsTotal:        m.pollsTotal.Load(),
		PollsSkipped:      m.pollsSkipped.Load(),
		BroadcastsTotal:   m.broadcastsTotal.Load(),
		FetchErrors:       m.fetchErrors.Load(),
		CacheFallbacks:    m.cacheFallbacks.Load(),
		CacheWrites:       m.cacheWrites.Load(),
		TerminatedConns:   m.terminatedConns.Load(),
		SendErrors:        m.sendErrors.Load(),
		AvgPollLatencyNs:  avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		LastBroadcastUnix: m.lastBroadcastUnix.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.pollsTotal.Store(0)
	m.pollsSkipped.Store(0)
	m.broadcastsTotal.Store(0)
	m.fetchErrors.Store(0)
	m.cacheFallbacks.Store(0)
	m.cacheWrites.Store(0)
	m.terminatedConns.Store(0)
	m.sendErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.lastBroadcastUnix.Store(0)
}
