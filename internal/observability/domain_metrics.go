package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepulse_generation_attempts_total",
			Help: "Generation attempts by stage (sql, chart_spec) and outcome (valid, invalid, provider_error).",
		},
		[]string{"stage", "outcome"},
	)
	generationLoopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepulse_generation_loops_total",
			Help: "Completed generation loops by stage and result (success, exhausted, aborted, engine_unavailable).",
		},
		[]string{"stage", "result"},
	)
	inferenceLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridepulse_inference_latency_seconds",
			Help:    "Inference provider call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ridepulse_query_execution_seconds",
			Help:    "DuckDB query execution latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepulse_cache_lookups_total",
			Help: "Response cache lookups by outcome (hit, miss).",
		},
		[]string{"outcome"},
	)
	renderFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ridepulse_render_failures_total",
			Help: "Chart renders that failed after the chart spec passed validation.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationAttemptsTotal,
		generationLoopsTotal,
		inferenceLatencySeconds,
		queryExecutionSeconds,
		cacheLookupsTotal,
		renderFailuresTotal,
	)
}

func ObserveGenerationAttempt(stage, outcome string) {
	generationAttemptsTotal.WithLabelValues(stage, outcome).Inc()
}

func ObserveGenerationLoop(stage, result string) {
	generationLoopsTotal.WithLabelValues(stage, result).Inc()
}

func ObserveInferenceLatency(provider string, elapsed time.Duration) {
	inferenceLatencySeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration) {
	queryExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

func IncrementRenderFailure() {
	renderFailuresTotal.Inc()
}
