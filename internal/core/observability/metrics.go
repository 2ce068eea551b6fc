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
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of dataset fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"driver", "result"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "station_queries_total",
			Help: "Engine queries by mode and outcome status.",
		},
		[]string{"mode", "status"},
	)

	queryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "station_query_results",
			Help:    "Number of results returned per query.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"mode"},
	)

	datasetFeatures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_features",
			Help: "Features in the active dataset snapshot.",
		},
		[]string{"kind"},
	)

	datasetUnmatched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_unmatched_stations",
			Help: "Stations outside every neighborhood polygon.",
		},
	)

	datasetVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_version",
			Help: "Generation of the active dataset snapshot.",
		},
	)

	datasetReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_reloads_total",
			Help: "Dataset (re)loads by result.",
		},
		[]string{"result"},
	)

	sourceCacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_cache_ops_total",
			Help: "Redis source cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	sourceCacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_cache_op_seconds",
			Help:    "Latency of Redis source cache operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	locateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locate_total",
			Help: "Geolocation lookups by result.",
		},
		[]string{"result"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(driver string, err error, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(driver, result(err)).Observe(durationSeconds)
}

func ObserveQuery(mode, status string, results int) {
	queriesTotal.WithLabelValues(mode, status).Inc()
	queryResults.WithLabelValues(mode).Observe(float64(results))
}

func SetDataset(version uint64, stations, neighborhoods, unmatched int) {
	datasetFeatures.WithLabelValues("stations").Set(float64(stations))
	datasetFeatures.WithLabelValues("neighborhoods").Set(float64(neighborhoods))
	datasetUnmatched.Set(float64(unmatched))
	datasetVersion.Set(float64(version))
}

func IncReload(err error) {
	datasetReloads.WithLabelValues(result(err)).Inc()
}

// ObserveCacheOp records a source cache op; hit/miss are passed as result for gets.
func ObserveCacheOp(op, res string, durationSeconds float64) {
	sourceCacheOps.WithLabelValues(op, res).Inc()
	sourceCacheOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncLocate(res string) {
	locateTotal.WithLabelValues(res).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
