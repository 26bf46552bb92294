// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	datasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_loads_total",
			Help: "Static dataset loads by kind, origin and outcome.",
		},
		[]string{"dataset", "origin", "outcome"},
	)

	datasetLoadSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataset_load_duration_seconds",
			Help:    "Latency of static dataset loads in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"dataset"},
	)

	datasetFeatures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_features",
			Help: "Number of features currently held per dataset.",
		},
		[]string{"dataset"},
	)

	viewComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_computations_total",
			Help: "Derived view requests by cache outcome.",
		},
		[]string{"outcome"},
	)

	cacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_cache_ops_total",
			Help: "Redis dataset cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_cache_op_duration_seconds",
			Help:    "Latency of redis dataset cache operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewer_sessions_active",
			Help: "Number of live viewer sessions.",
		},
	)

	sessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewer_events_total",
			Help: "Viewer UI events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	reloadEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_reload_events_total",
			Help: "Dataset reload events consumed from the bus.",
		},
		[]string{"dataset", "outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveDatasetLoad records one load attempt; origin is "fetch" or "cache".
func ObserveDatasetLoad(dataset, origin string, err error, features int, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	datasetLoadsTotal.WithLabelValues(dataset, origin, outcome).Inc()
	datasetLoadSeconds.WithLabelValues(dataset).Observe(durationSeconds)
	datasetFeatures.WithLabelValues(dataset).Set(float64(features))
}

func IncViewCacheHit()  { viewComputations.WithLabelValues("hit").Inc() }
func IncViewCacheMiss() { viewComputations.WithLabelValues("miss").Inc() }

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOps.WithLabelValues(op, result).Inc()
	cacheOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncCacheHit()  { cacheOps.WithLabelValues("get", "hit").Inc() }
func IncCacheMiss() { cacheOps.WithLabelValues("get", "miss").Inc() }

func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

func ObserveEvent(typ string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sessionEvents.WithLabelValues(typ, outcome).Inc()
}

func ObserveReload(dataset string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	reloadEvents.WithLabelValues(dataset, outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
