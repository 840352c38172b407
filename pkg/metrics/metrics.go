// Package metrics defines the Prometheus collectors shared by the cloud
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPResponseBytes    *prometheus.HistogramVec
	CloudsGenerated      *prometheus.CounterVec
	CloudFailures        *prometheus.CounterVec
	CloudBuildLatency    *prometheus.HistogramVec
	CloudWords           prometheus.Histogram
	CloudSize            prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	JobsSubmitted        prometheus.Counter
	JobsProcessed        *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Services pass
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		HTTPResponseBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response body size in bytes.",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"method", "path"},
		),
		CloudsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagcloud_clouds_generated_total",
				Help: "Clouds generated by mode (sync, job) and cache status (hit, miss).",
			},
			[]string{"mode", "cache"},
		),
		CloudFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagcloud_cloud_failures_total",
				Help: "Failed generations by reason.",
			},
			[]string{"reason"},
		),
		CloudBuildLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tagcloud_build_latency_seconds",
				Help:    "Time to build a cloud, including cache lookups.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"mode"},
		),
		CloudWords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tagcloud_document_words",
				Help:    "Words counted per generated document.",
				Buckets: prometheus.ExponentialBuckets(10, 4, 10),
			},
		),
		CloudSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tagcloud_cloud_size",
				Help:    "Entries per generated cloud.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tagcloud_cache_hits_total",
				Help: "Total number of cloud cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tagcloud_cache_misses_total",
				Help: "Total number of cloud cache misses.",
			},
		),
		JobsSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tagcloud_jobs_submitted_total",
				Help: "Jobs accepted for asynchronous generation.",
			},
		),
		JobsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagcloud_jobs_processed_total",
				Help: "Jobs finished by workers, by outcome (complete, failed).",
			},
			[]string{"outcome"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tagcloud_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.HTTPResponseBytes,
		m.CloudsGenerated,
		m.CloudFailures,
		m.CloudBuildLatency,
		m.CloudWords,
		m.CloudSize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.JobsSubmitted,
		m.JobsProcessed,
		m.RateLimitedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveCloud records one successful generation.
func (m *Metrics) ObserveCloud(mode string, cacheHit bool, latency time.Duration, totalWords, size int) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
		m.CloudWords.Observe(float64(totalWords))
	}
	m.CloudsGenerated.WithLabelValues(mode, cache).Inc()
	m.CloudBuildLatency.WithLabelValues(mode).Observe(latency.Seconds())
	m.CloudSize.Observe(float64(size))
}

// ObserveFailure records a failed generation. reason is a short label such
// as "empty_corpus" or "timeout".
func (m *Metrics) ObserveFailure(reason string) {
	m.CloudFailures.WithLabelValues(reason).Inc()
}

// BreakerStateHook returns a callback for resilience.CircuitBreakerConfig
// that mirrors state changes into CircuitBreakerState.
func (m *Metrics) BreakerStateHook() func(name string, from, to resilience.State) {
	return func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}
