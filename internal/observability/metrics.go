package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AI scoring request outcomes.
const (
	AIOutcomeCached = "cached"
	AIOutcomeShared = "shared"
	AIOutcomeCalled = "called"
	AIOutcomeFailed = "failed"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	scoringFinalizedTotal  prometheus.Counter
	scoringAIRequestsTotal *prometheus.CounterVec
	scoringEventsFailed    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the scoring workflow.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectflow",
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "projectflow",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectflow",
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		scoringFinalizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projectflow",
			Subsystem: "scoring",
			Name:      "finalized_total",
			Help:      "Total number of submissions finalized.",
		})

		scoringAIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectflow",
			Subsystem: "scoring",
			Name:      "ai_requests_total",
			Help:      "AI scoring triggers by outcome.",
		}, []string{"outcome"})

		scoringEventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectflow",
			Subsystem: "scoring",
			Name:      "event_publish_failures_total",
			Help:      "Scoring events that could not be published, by transport.",
		}, []string{"transport"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			scoringFinalizedTotal,
			scoringAIRequestsTotal,
			scoringEventsFailed,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ScoringFinalized exposes the finalized submissions counter.
func ScoringFinalized() prometheus.Counter {
	RegisterMetrics()
	return scoringFinalizedTotal
}

// ScoringAIRequests exposes the AI trigger counter labelled by outcome.
func ScoringAIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return scoringAIRequestsTotal
}

// ScoringEventFailures exposes the event publishing failure counter.
func ScoringEventFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return scoringEventsFailed
}
