package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics backing Engine.Metrics().
// Grounded on the donor's internal/adapter/inbound/http/metrics.go,
// adapted from per-HTTP-request counters to per-evaluation counters.
type Collector struct {
	DecisionsTotal    *prometheus.CounterVec
	EvaluationSeconds prometheus.Histogram
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	PolicyCount       prometheus.Gauge
}

// NewCollector creates and registers all metrics with reg. Passing
// prometheus.NewRegistry() gives each Engine its own isolated registry,
// matching the "tests instantiate fresh engines" design note (§9).
func NewCollector(reg prometheus.Registerer) *Collector {
	return &Collector{
		DecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "policy_engine",
				Name:      "decisions_total",
				Help:      "Total Evaluate outcomes by decision kind.",
			},
			[]string{"decision"},
		),
		EvaluationSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "policy_engine",
				Name:      "evaluation_seconds",
				Help:      "Evaluate call latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "policy_engine",
				Name:      "cache_hits_total",
				Help:      "Total decision cache hits.",
			},
		),
		CacheMissesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "policy_engine",
				Name:      "cache_misses_total",
				Help:      "Total decision cache misses.",
			},
		),
		PolicyCount: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "policy_engine",
				Name:      "policies_loaded",
				Help:      "Number of policies currently loaded.",
			},
		),
	}
}

// RecordDecision records a completed Evaluate call's outcome and latency.
func (c *Collector) RecordDecision(decision string, seconds float64) {
	if c == nil {
		return
	}
	c.DecisionsTotal.WithLabelValues(decision).Inc()
	c.EvaluationSeconds.Observe(seconds)
}

// RecordCacheHit increments the cache hit counter.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMissesTotal.Inc()
}

// SetPolicyCount updates the loaded-policy gauge.
func (c *Collector) SetPolicyCount(n int) {
	if c == nil {
		return
	}
	c.PolicyCount.Set(float64(n))
}
