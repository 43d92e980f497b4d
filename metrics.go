package authsession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts adopted sessions from credential logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed credential logins.
	MetricLoginFailure
	// MetricTwoFactorRequired counts logins answered with a challenge.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts completed two-factor verifications.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts rejected two-factor codes.
	MetricTwoFactorFailure
	// MetricRefreshSuccess counts successful token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed token refreshes.
	MetricRefreshFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricSessionRecovered counts sessions restored from storage.
	MetricSessionRecovered
	// MetricSessionRecoveryFailed counts startups that found persisted
	// state but could not restore a session from it.
	MetricSessionRecoveryFailed
	// MetricSilentRedirect counts invalid-session redirect hook firings.
	MetricSilentRedirect
	// MetricPermissionCacheHit counts facade reads served from cache.
	MetricPermissionCacheHit
	// MetricPermissionCacheMiss counts facade reads that failed closed.
	MetricPermissionCacheMiss
	// MetricPermissionRefreshSuccess counts permission fetches that
	// replaced the cache entry.
	MetricPermissionRefreshSuccess
	// MetricPermissionRefreshFailure counts failed permission fetches.
	MetricPermissionRefreshFailure
	// MetricFallbackServed counts refreshes resolved from the role table.
	MetricFallbackServed
	// MetricSnapshotCorrupt counts purged corrupt persisted records.
	MetricSnapshotCorrupt
	// MetricPermissionRefreshLatency is the refresh latency histogram.
	MetricPermissionRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Counters are padded to a cache line each so hot increments on different
// IDs do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional latency histogram. A nil or
// disabled Metrics accepts every call as a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the instance records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram records.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricPermissionRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads the current counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters and histograms.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricPermissionRefreshLatency].buckets[i])
		}
		s.Histograms[MetricPermissionRefreshLatency] = buckets
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
