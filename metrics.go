package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant used by the clearance portal.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant used by the clearance portal.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant used by the clearance portal.
	MetricLoginRateLimited
	// MetricBotCheckRejected is an exported constant used by the clearance portal.
	MetricBotCheckRejected
	// MetricBotCheckSkipped is an exported constant used by the clearance portal.
	MetricBotCheckSkipped
	// MetricBotCheckUnavailable is an exported constant used by the clearance portal.
	MetricBotCheckUnavailable
	// MetricValidationRejected is an exported constant used by the clearance portal.
	MetricValidationRejected
	// MetricLockoutHit is an exported constant used by the clearance portal.
	MetricLockoutHit
	// MetricLockoutTriggered is an exported constant used by the clearance portal.
	MetricLockoutTriggered
	// MetricRoleMismatch is an exported constant used by the clearance portal.
	MetricRoleMismatch
	// MetricAccountInactive is an exported constant used by the clearance portal.
	MetricAccountInactive
	// MetricSessionIssued is an exported constant used by the clearance portal.
	MetricSessionIssued
	// MetricSessionVerified is an exported constant used by the clearance portal.
	MetricSessionVerified
	// MetricSessionRejected is an exported constant used by the clearance portal.
	MetricSessionRejected
	// MetricAuthenticateLatency is an exported constant used by the clearance portal.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each counter on its own cache line so hot
// counters do not false-share under concurrent logins.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's in-process counter set. All methods are
// safe on a nil receiver, which is how disabled metrics are
// represented.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a counter set per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records an Authenticate duration into the latency
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Reads are atomic per counter, not
// across the set.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
