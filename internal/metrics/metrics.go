// Package metrics exposes Prometheus metrics for upstream fetches and LLM calls.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// llmRequestsTotal counts LLM invocations.
	// Labels:
	//   - provider: azure, openai, grok, gemini
	//   - outcome: success, unauthorized, quota_exceeded, transport
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autum_llm_requests_total",
			Help: "Total number of LLM invocations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	llmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autum_llm_request_duration_seconds",
			Help:    "Duration of LLM invocations in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// degradedResultsTotal counts results served from the fallback path.
	// Labels:
	//   - kind: summary, remark
	degradedResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autum_degraded_results_total",
			Help: "Total number of results produced without a successful LLM call",
		},
		[]string{"kind"},
	)

	// upstreamFetchTotal counts activity fetches.
	// Labels:
	//   - source: Jira, GitHub
	//   - status: success, failed, unconfigured
	upstreamFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autum_upstream_fetch_total",
			Help: "Total number of activity fetches by source and status",
		},
		[]string{"source", "status"},
	)
)

func init() {
	prometheus.MustRegister(llmRequestsTotal)
	prometheus.MustRegister(llmRequestDuration)
	prometheus.MustRegister(degradedResultsTotal)
	prometheus.MustRegister(upstreamFetchTotal)
}

func RecordLLMRequest(provider, outcome string, durationSeconds float64) {
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
	llmRequestDuration.WithLabelValues(provider).Observe(durationSeconds)
}

func RecordDegraded(kind string) {
	degradedResultsTotal.WithLabelValues(kind).Inc()
}

func RecordUpstreamFetch(source, status string) {
	upstreamFetchTotal.WithLabelValues(source, status).Inc()
}
