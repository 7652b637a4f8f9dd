package authguard

import "sync/atomic"

// MetricID identifies one guard counter.
type MetricID uint16

const (
	// MetricCheckAllowed counts rate-limit checks that passed.
	MetricCheckAllowed MetricID = iota
	// MetricCheckDenied counts rate-limit checks that were denied.
	MetricCheckDenied
	// MetricFailureRecorded counts authentication failures reported to the guard.
	MetricFailureRecorded
	// MetricLockoutTriggered counts failure streaks that escalated into a lockout.
	MetricLockoutTriggered
	// MetricLockoutCleared counts streaks cleared by success or unblock.
	MetricLockoutCleared
	// MetricSweepEvicted counts entries removed by sweep passes.
	MetricSweepEvicted
	metricIDCount
)

const cacheLineSize = 64

// Counters sit on separate cache lines so concurrent request paths do not
// false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the guard's atomic counters. A nil or disabled Metrics is
// a no-op on every path.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) add(id MetricID, n uint64) {
	if m == nil || !m.enabled || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// MetricsSnapshot is a point-in-time copy of the guard's counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
