// Package metrics holds the Prometheus collectors of the parqview server.
//
// Collectors are registered on the default registry at package init, so the
// /metrics endpoint exposes them without further wiring.
//
//	timer := metrics.NewTimer()
//	result, err := runner.Run(ctx, t, sql)
//	metrics.QueryDuration.WithLabelValues("sqlite").Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// HTTPRequests counts handled requests by route, method and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parqview_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency in seconds.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parqview_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Uploads counts upload attempts by outcome.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parqview_uploads_total",
			Help: "Total number of parquet uploads",
		},
		[]string{"outcome"},
	)

	// UploadBytes observes the size of accepted uploads.
	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parqview_upload_size_bytes",
			Help:    "Size of uploaded parquet files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
		},
	)

	// RowsLoaded counts rows decoded from uploads and previews.
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parqview_rows_loaded_total",
			Help: "Total number of rows decoded from parquet files",
		},
		[]string{"source"},
	)

	// Queries counts executed SQL queries by engine and outcome.
	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parqview_queries_total",
			Help: "Total number of SQL queries executed",
		},
		[]string{"engine", "outcome"},
	)

	// QueryDuration observes query latency in seconds.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parqview_query_duration_seconds",
			Help:    "SQL query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"engine"},
	)

	// ArchiveWrites counts archive attempts by backend and outcome.
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parqview_archive_writes_total",
			Help: "Total number of upload archive writes",
		},
		[]string{"backend", "outcome"},
	)

	// DatasetRows reports the row count of the current dataset.
	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parqview_dataset_rows",
			Help: "Number of rows in the currently loaded dataset",
		},
	)
)

// Timer measures elapsed time.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Outcome returns OutcomeError when err is non-nil and OutcomeSuccess
// otherwise.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
