// Package metrics registers the Prometheus collectors exported on /metrics
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_search_cache_operations_total",
			Help: "Cache operations by operation and result",
		},
		[]string{"operation", "result"}, // result: hit, miss, ok, fail
	)

	CacheEntriesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "music_search_cache_entries_swept_total",
			Help: "Expired cache entries removed by the periodic sweep",
		},
	)

	// Upstream catalog
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_search_upstream_requests_total",
			Help: "Requests sent to the upstream catalog by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "music_search_upstream_duration_seconds",
			Help:    "Upstream catalog request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RateGateWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "music_search_rate_gate_wait_seconds",
			Help:    "Time spent queued behind the upstream rate gate",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "music_search_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Search
	SearchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_search_searches_total",
			Help: "Searches by outcome",
		},
		[]string{"outcome"}, // cached, fresh, fallback, empty, error
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "music_search_search_duration_seconds",
			Help:    "End-to-end search latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cached"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_search_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "music_search_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// RecordCacheOp counts one cache operation
func RecordCacheOp(operation, result string) {
	CacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordUpstream records one upstream request
func RecordUpstream(endpoint string, status int, d time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordSearch records a finished search
func RecordSearch(outcome string, cached bool, d time.Duration) {
	SearchOutcomes.WithLabelValues(outcome).Inc()
	SearchDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(d.Seconds())
}

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route, method string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
