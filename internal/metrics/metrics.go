// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline: backend call volume, cache effectiveness, and build activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atalaya_backend_requests_total",
			Help: "Outbound monitoring backend calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atalaya_backend_request_duration_seconds",
			Help:    "Latency of monitoring backend calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"endpoint"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atalaya_cache_hits_total",
			Help: "Result cache hits by key kind",
		},
		[]string{"kind"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atalaya_cache_misses_total",
			Help: "Result cache misses by key kind",
		},
		[]string{"kind"},
	)

	DashboardBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atalaya_dashboard_builds_total",
			Help: "Dashboard builds by domain and outcome",
		},
		[]string{"domain", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atalaya_http_request_duration_seconds",
			Help:    "Latency of served API requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
		[]string{"path", "status"},
	)
)

// ObserveBackendRequest records one outbound backend call. Wired into the
// gateway client's OnRequest hook.
func ObserveBackendRequest(endpoint string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackendRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	BackendRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordBuild records one dashboard build attempt.
func RecordBuild(domain string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	DashboardBuildsTotal.WithLabelValues(domain, outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss for the given key kind.
func RecordCacheLookup(kind string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	CacheMissesTotal.WithLabelValues(kind).Inc()
}
