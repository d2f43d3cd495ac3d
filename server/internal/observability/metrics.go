package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects per-operation counters and recent latencies.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operations map[string]*OperationMetrics

	// Ring of recent durations for percentiles.
	durations    []time.Duration
	maxDurations int
}

// OperationMetrics represents metrics for a single operation such as note.create.
type OperationMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
	pendingCount  atomic.Int64
}

// NewMetrics creates a new metrics collector keeping the last maxDurations latencies.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Outcome classifies a finished operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomePending is a success whose vector index write is still outstanding.
	OutcomePending
	OutcomeFailure
)

// Record records one finished operation.
func (m *Metrics) Record(operation string, duration time.Duration, outcome Outcome) {
	m.requestTotal.Add(1)
	om := m.getOperationMetrics(operation)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	switch outcome {
	case OutcomeFailure:
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	case OutcomePending:
		om.pendingCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) getOperationMetrics(operation string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[operation]
	if !ok {
		om = &OperationMetrics{}
		m.operations[operation] = om
	}
	return om
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	operations := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		snapshot := &OperationSnapshot{
			Count:        count,
			ErrorCount:   om.errorCount.Load(),
			PendingCount: om.pendingCount.Load(),
		}
		if count > 0 {
			snapshot.AvgLatencyMs = om.totalDuration.Load() / count
		}
		operations[name] = snapshot
	}

	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		P50LatencyMs:  percentile(sorted, 0.50).Milliseconds(),
		P95LatencyMs:  percentile(sorted, 0.95).Milliseconds(),
		Operations:    operations,
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                         `json:"request_total"`
	RequestFailed int64                         `json:"request_failed"`
	P50LatencyMs  int64                         `json:"p50_latency_ms"`
	P95LatencyMs  int64                         `json:"p95_latency_ms"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
}

// OperationSnapshot represents metrics for a single operation.
type OperationSnapshot struct {
	Count        int64 `json:"count"`
	ErrorCount   int64 `json:"error_count"`
	PendingCount int64 `json:"pending_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
