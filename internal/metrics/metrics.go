package metrics

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Analysis outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeRefused = "refused"
	OutcomeError   = "error"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AnalysisInFlight is the number of outbound model calls currently waiting.
	AnalysisInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_in_flight",
			Help: "Number of analysis calls awaiting the external model",
		},
	)

	// AnalysisTotal counts finished model calls by provider and outcome (ok, refused, error).
	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Total number of analysis calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// AnalysisDuration tracks how long the external model takes to answer.
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Duration of analysis calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	// HistoryDeletes counts delete attempts by result (deleted, not_found, error).
	HistoryDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_deletes_total",
			Help: "Total number of history delete attempts by result",
		},
		[]string{"result"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

const uploadsPrefix = "/static/uploads/"

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AnalysisInFlight, AnalysisTotal, AnalysisDuration, HistoryDeletes)
	})
}

// NormalizePath reduces cardinality: numeric segments become {id} and every
// stored image collapses to one label.
// E.g. /api/history/delete/12 -> /api/history/delete/{id}.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, uploadsPrefix) {
		return uploadsPrefix + "{file}"
	}
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// StartAnalysis marks a model call as in flight. The returned func records
// its outcome and must be called exactly once.
func StartAnalysis(provider string) func(outcome string) {
	start := time.Now()
	AnalysisInFlight.Inc()
	return func(outcome string) {
		AnalysisInFlight.Dec()
		AnalysisDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
		AnalysisTotal.WithLabelValues(provider, outcome).Inc()
	}
}

func IncHistoryDeletes(result string) {
	HistoryDeletes.WithLabelValues(result).Inc()
}
