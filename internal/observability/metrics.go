package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	evaluationsCreatedTotal prometheus.Counter
	signaturesTotal         *prometheus.CounterVec
	reconciliationsTotal    *prometheus.CounterVec
	notificationsTotal      *prometheus.CounterVec
	redemptionsTotal        *prometheus.CounterVec
	uploadsRejectedTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_created_total",
			Help: "Evaluations persisted.",
		})

		signaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_signatures_total",
			Help: "Signature attempts by signer type and outcome.",
		}, []string{"type", "outcome"})

		reconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_reconciliations_total",
			Help: "Schedule slot reconciliation outcomes by matching strategy.",
		}, []string{"strategy"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification tasks by kind and outcome.",
		}, []string{"kind", "outcome"})

		redemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credential_redemptions_total",
			Help: "Credential token redemptions by outcome.",
		}, []string{"outcome"})

		uploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_uploads_rejected_total",
			Help: "Attachment uploads rejected by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			evaluationsCreatedTotal,
			signaturesTotal,
			reconciliationsTotal,
			notificationsTotal,
			redemptionsTotal,
			uploadsRejectedTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// EvaluationsCreated counts persisted evaluations.
func EvaluationsCreated() prometheus.Counter {
	RegisterMetrics()
	return evaluationsCreatedTotal
}

// Signatures counts signature attempts.
func Signatures() *prometheus.CounterVec {
	RegisterMetrics()
	return signaturesTotal
}

// Reconciliations counts schedule reconciliation outcomes.
func Reconciliations() *prometheus.CounterVec {
	RegisterMetrics()
	return reconciliationsTotal
}

// Notifications counts notification tasks.
func Notifications() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// Redemptions counts credential redemptions.
func Redemptions() *prometheus.CounterVec {
	RegisterMetrics()
	return redemptionsTotal
}

// UploadsRejected counts rejected attachment uploads.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedTotal
}
