// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is a self-contained set of collectors, so tests can construct
// one with prometheus.NewRegistry() instead of colliding on the default
// global registry.
type Registry struct {
	JobsPending     prometheus.Gauge
	JobsRunning     prometheus.Gauge
	JobsCompleted   *prometheus.CounterVec
	ToolCallsTotal  *prometheus.CounterVec
	LoopIterations  prometheus.Histogram
	LLMInvocations  *prometheus.CounterVec
	LLMLatency      prometheus.Histogram
}

// New registers the engine's collectors against reg and returns the
// handles used to record measurements.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		JobsPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "artificer_jobs_pending",
			Help: "Number of background jobs currently pending.",
		}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "artificer_jobs_running",
			Help: "1 if the background worker is currently running a job, else 0.",
		}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artificer_jobs_completed_total",
			Help: "Count of background jobs that reached a terminal status.",
		}, []string{"method", "status"}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artificer_tool_calls_total",
			Help: "Count of tool calls dispatched, by tool name and location.",
		}, []string{"tool", "location"}),
		LoopIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "artificer_loop_iterations",
			Help:    "Number of iterations the agentic loop took per turn.",
			Buckets: prometheus.LinearBuckets(1, 2, 12),
		}),
		LLMInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artificer_llm_invocations_total",
			Help: "Count of LLM backend invocations, by specialist and outcome.",
		}, []string{"specialist", "outcome"}),
		LLMLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "artificer_llm_latency_seconds",
			Help:    "Wall time of a single LLM invocation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
