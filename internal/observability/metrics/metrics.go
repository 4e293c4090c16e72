package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "solarsync_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"

	// OrderResultSucceeded labels a vendor-confirmed order.
	OrderResultSucceeded = "succeeded"
	// OrderResultFailed labels a vendor-rejected order.
	OrderResultFailed = "failed"
	// OrderResultTimeout labels an order whose polling budget ran out.
	OrderResultTimeout = "timeout"
)

var (
	registerOnce sync.Once

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec

	rowsWritten *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec

	chunksTotal   *prometheus.CounterVec
	chunksLatency *prometheus.HistogramVec

	orderSubmissions prometheus.Counter
	orderResults     *prometheus.CounterVec

	reportExportTotal *prometheus.CounterVec
)

// Init registers process metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		apiRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "api_requests_total",
				Help: "Total vendor API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		apiLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "api_request_latency_seconds",
				Help:    "Vendor API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "result"},
		)

		rowsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_written_total",
				Help: "Total rows written by table",
			},
			[]string{"table"},
		)
		rowsSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_skipped_total",
				Help: "Total rows skipped by table and reason",
			},
			[]string{"table", "reason"},
		)

		chunksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_chunks_total",
				Help: "Total ingested date-range chunks by result",
			},
			[]string{"result"},
		)
		chunksLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_chunk_latency_seconds",
				Help:    "Chunk fetch-map-write latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		orderSubmissions = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "order_submissions_total",
				Help: "Total submitted device-control orders",
			},
		)
		orderResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "order_results_total",
				Help: "Total order outcomes by result",
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			apiRequests,
			apiLatency,
			rowsWritten,
			rowsSkipped,
			chunksTotal,
			chunksLatency,
			orderSubmissions,
			orderResults,
			reportExportTotal,
		)
	})
}

// ObserveAPIRequest records one vendor API call.
func ObserveAPIRequest(endpoint, result string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if apiRequests != nil {
		apiRequests.WithLabelValues(endpoint, result).Inc()
	}
	if apiLatency != nil {
		apiLatency.WithLabelValues(endpoint, result).Observe(duration.Seconds())
	}
}

// AddRowsWritten increments the written-row counter for a table.
func AddRowsWritten(table string, count int) {
	if count <= 0 {
		return
	}
	if rowsWritten != nil {
		rowsWritten.WithLabelValues(table).Add(float64(count))
	}
}

// AddRowsSkipped adds count to the skipped-row counter for a table.
func AddRowsSkipped(table, reason string, count int) {
	if count <= 0 {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	if rowsSkipped != nil {
		rowsSkipped.WithLabelValues(table, reason).Add(float64(count))
	}
}

// ObserveChunk records one processed ingestion chunk.
func ObserveChunk(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if chunksTotal != nil {
		chunksTotal.WithLabelValues(result).Inc()
	}
	if chunksLatency != nil {
		chunksLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncOrderSubmitted increments the submitted-order counter.
func IncOrderSubmitted() {
	if orderSubmissions != nil {
		orderSubmissions.Inc()
	}
}

// IncOrderResult increments the order-outcome counter.
func IncOrderResult(result string) {
	if result == "" {
		result = "unknown"
	}
	if orderResults != nil {
		orderResults.WithLabelValues(result).Inc()
	}
}

// IncReportExport increments the report-export counter.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
}
