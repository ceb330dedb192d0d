// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Market data metrics
	FetchAttempts    *prometheus.CounterVec
	FetchExhausted   *prometheus.CounterVec
	QuotesReceived   *prometheus.CounterVec
	StreamReconnects prometheus.Counter

	// Storage metrics
	RowsUpserted    *prometheus.CounterVec
	UpsertBatches   *prometheus.CounterVec
	EmptyBatchSkips *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// Analysis metrics
	SpreadsEvaluated   prometheus.Counter
	CandidatesRanked   prometheus.Histogram
	IngestionRunsTotal *prometheus.CounterVec
	AnalysisRunsTotal  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "options_spread_lab"
	}

	return &Metrics{
		FetchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_attempts_total",
			Help:      "Total fetch attempts by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		FetchExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_exhausted_total",
			Help:      "Total fetches that exhausted the retry budget",
		}, []string{"endpoint"}),
		QuotesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "quotes_received_total",
			Help:      "Total streamed quotes received by ticker",
		}, []string{"ticker"}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "stream_reconnects_total",
			Help:      "Total quote stream reconnections",
		}),

		RowsUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "rows_upserted_total",
			Help:      "Total rows upserted by table",
		}, []string{"table"}),
		UpsertBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "upsert_batches_total",
			Help:      "Total upsert batches by table and status",
		}, []string{"table", "status"}),
		EmptyBatchSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "empty_batch_skips_total",
			Help:      "Total upsert calls skipped because the batch was empty",
		}, []string{"table"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),

		SpreadsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "spreads_evaluated_total",
			Help:      "Total put credit spread selections computed",
		}),
		CandidatesRanked: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "candidates_ranked",
			Help:      "Eligible long legs ranked per spread selection",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		IngestionRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ingestion_runs_total",
			Help:      "Total ingestion runs by status",
		}, []string{"status"}),
		AnalysisRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_runs_total",
			Help:      "Total analysis runs by status",
		}, []string{"status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetchAttempt records one fetch attempt outcome.
func RecordFetchAttempt(endpoint, outcome string) {
	DefaultMetrics.FetchAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordFetchExhausted records a fetch that exhausted its retry budget.
func RecordFetchExhausted(endpoint string) {
	DefaultMetrics.FetchExhausted.WithLabelValues(endpoint).Inc()
}

// RecordQuoteReceived records one streamed quote.
func RecordQuoteReceived(ticker string) {
	DefaultMetrics.QuotesReceived.WithLabelValues(ticker).Inc()
}

// RecordQuoteStreamReconnect records a quote stream reconnection.
func RecordQuoteStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordUpsert records an upsert batch and its row count.
func RecordUpsert(table string, rows int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.UpsertBatches.WithLabelValues(table, status).Inc()
	if err == nil {
		DefaultMetrics.RowsUpserted.WithLabelValues(table).Add(float64(rows))
	}
}

// RecordEmptyBatchSkip records an upsert call skipped on empty input.
func RecordEmptyBatchSkip(table string) {
	DefaultMetrics.EmptyBatchSkips.WithLabelValues(table).Inc()
}

// RecordSpreadEvaluated records one spread selection and its ranked rows.
func RecordSpreadEvaluated(candidates int) {
	DefaultMetrics.SpreadsEvaluated.Inc()
	DefaultMetrics.CandidatesRanked.Observe(float64(candidates))
}

// RecordIngestionRun records an ingestion run outcome.
func RecordIngestionRun(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.IngestionRunsTotal.WithLabelValues(status).Inc()
}

// RecordAnalysisRun records an analysis run outcome.
func RecordAnalysisRun(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.AnalysisRunsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query duration.
func RecordDBQuery(database, operation string, seconds float64) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
}
