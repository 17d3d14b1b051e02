package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	reviewTransitionsVec  *prometheus.CounterVec
	reviewUploadBytesHist prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revizor_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revizor_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revizor_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		reviewTransitionsVec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revizor_review_stage_transitions_total",
			Help: "Total number of review session stage transitions.",
		}, []string{"from", "to"})

		reviewUploadBytesHist = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "revizor_review_upload_bytes",
			Help:    "Size distribution of uploaded submission documents.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			reviewTransitionsVec,
			reviewUploadBytesHist,
		)
	})
}

// APIRequests exposes the counter for served requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ReviewTransitions exposes the counter for review stage transitions.
func ReviewTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewTransitionsVec
}

// ReviewUploadBytes exposes the histogram of uploaded document sizes.
func ReviewUploadBytes() prometheus.Histogram {
	RegisterMetrics()
	return reviewUploadBytesHist
}
