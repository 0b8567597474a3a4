package mipsobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exposed by the gRPC server.
// Grounded on the teacher's observability.Metrics shape, scoped down to
// the operations this module actually performs (build/search per index
// kind, rather than a general request/vector/tenant surface).
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	IndexVectorCount *prometheus.GaugeVec
	BuildDuration    *prometheus.HistogramVec
	SearchDuration   *prometheus.HistogramVec
	SearchRecall     prometheus.Histogram

	RateLimitRejections prometheus.Counter
}

// NewMetrics creates and registers the Prometheus collectors against a
// fresh registry of their own, so each call returns an independent set and
// NewMetrics may be called more than once in one process.
func NewMetrics() *Metrics {
	// Shadows the promauto package with a factory bound to that registry.
	promauto := promauto.With(prometheus.NewRegistry())
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mipsindex_requests_total",
				Help: "Total number of gRPC requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mipsindex_request_duration_seconds",
				Help:    "gRPC request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mipsindex_request_errors_total",
				Help: "Total number of gRPC request errors by method",
			},
			[]string{"method"},
		),
		IndexVectorCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mipsindex_vector_count",
				Help: "Number of vectors held by an index, by index kind",
			},
			[]string{"kind"},
		),
		BuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mipsindex_build_duration_seconds",
				Help:    "Time spent training an index, by index kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		SearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mipsindex_search_duration_seconds",
				Help:    "Time spent answering a search batch, by index kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		SearchRecall: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mipsindex_search_recall",
				Help:    "Recall@k observed by the benchmark harness",
				Buckets: []float64{.1, .25, .5, .6, .7, .8, .9, .95, .99, 1},
			},
		),
		RateLimitRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mipsindex_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

// RecordRequest updates request counters and the latency histogram for a
// single gRPC call.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	if status != "ok" {
		m.RequestErrors.WithLabelValues(method).Inc()
	}
}

// RecordBuild updates build-phase metrics for an index kind.
func (m *Metrics) RecordBuild(kind string, vectorCount int, duration time.Duration) {
	m.IndexVectorCount.WithLabelValues(kind).Set(float64(vectorCount))
	m.BuildDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSearch updates search-phase metrics for an index kind.
func (m *Metrics) RecordSearch(kind string, duration time.Duration) {
	m.SearchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
