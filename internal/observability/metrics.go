package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	evaluationsTotal    *prometheus.CounterVec
	evaluationCasesRun  prometheus.Histogram
	evaluationLatency   prometheus.Histogram
	solvedProblemsAdded prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors served on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Graded evaluations grouped by outcome.",
		}, []string{"outcome"})

		evaluationCasesRun = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_test_cases_run",
			Help:    "Number of test cases sent to the judge per evaluation.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		})

		evaluationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Wall clock duration of a graded evaluation.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		})

		solvedProblemsAdded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solved_problems_added_total",
			Help: "Number of new entries added to user solved sets.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, evaluationsTotal, evaluationCasesRun, evaluationLatency, solvedProblemsAdded)
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

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationCasesRun exposes the per-evaluation test case histogram.
func EvaluationCasesRun() prometheus.Histogram {
	RegisterMetrics()
	return evaluationCasesRun
}

// EvaluationLatency exposes the evaluation duration histogram.
func EvaluationLatency() prometheus.Histogram {
	RegisterMetrics()
	return evaluationLatency
}

// SolvedProblemsAdded exposes the counter of newly solved problems.
func SolvedProblemsAdded() prometheus.Counter {
	RegisterMetrics()
	return solvedProblemsAdded
}
