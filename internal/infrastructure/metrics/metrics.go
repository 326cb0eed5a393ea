package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eval-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Token counters
	TokensPromptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "tokens_prompt_total",
			Help:      "Total prompt tokens consumed",
		},
		[]string{"model", "provider"},
	)

	TokensCompletionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "tokens_completion_total",
			Help:      "Total completion tokens generated",
		},
		[]string{"model", "provider"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"provider", "error_type"},
	)

	// Dispatcher retries
	ProviderRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "provider_retries_total",
			Help:      "Total transient provider failures that were retried",
		},
		[]string{"provider"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Model invocation duration
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "llm_duration_seconds",
			Help:      "Model invocation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model", "provider"},
	)

	// Evaluation outcome histograms
	EvaluationScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "evaluation_overall_score",
			Help:      "Distribution of overall evaluation scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"model", "score_method"},
	)

	EvaluationCases = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prompteval",
			Subsystem: "eval_api",
			Name:      "evaluation_cases",
			Help:      "Synthetic test cases per evaluation",
			Buckets:   []float64{1, 2, 3, 5, 8, 10},
		},
		[]string{"model"},
	)
)

// NormalizeEndpoint collapses a request path into a bounded label value.
func NormalizeEndpoint(path string) string {
	if path == "" {
		return "unknown"
	}
	return strings.TrimRight(path, "/")
}
