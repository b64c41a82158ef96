// Package metrics defines Prometheus metrics for the assistant.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"stage"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Assistant requests by final audit status",
		},
		[]string{"status"},
	)

	RouteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_route_total",
			Help: "Router decisions",
		},
		[]string{"route"},
	)

	ExecutorDialectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_executor_dialect_total",
			Help: "Elasticsearch calls by dialect and index",
		},
		[]string{"dialect", "index"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_tokens_total",
			Help: "LLM tokens by module, model and direction",
		},
		[]string{"module", "model", "direction"},
	)

	SanitizationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_sanitizations_total",
			Help: "Requests whose streamed output was redacted",
		},
	)

	TimeToFirstChunk = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_time_to_first_chunk_seconds",
			Help:    "Delay between request start and first streamed chunk",
			Buckets: prometheus.DefBuckets,
		},
	)

	RetrievedExamples = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_retrieved_examples",
			Help:    "Examples surviving the similarity threshold",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)
)

func init() {
	prometheus.MustRegister(
		StageDuration, RequestsTotal, RouteTotal, ExecutorDialectTotal,
		LLMTokensTotal, SanitizationsTotal, TimeToFirstChunk, RetrievedExamples,
	)
}
