package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		tasksRouted,
		tasksFinished,
		taskRetries,
		providerLatencyMs,
	)
}

var (
	tasksRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_tasks_routed_total",
			Help: "Tasks accepted by the router per type/priority.",
		},
		[]string{"type", "priority"},
	)

	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_tasks_finished_total",
			Help: "Tasks that reached a terminal status per type/status.",
		},
		[]string{"type", "status"},
	)

	taskRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_task_retries_total",
			Help: "Retryable provider failures that were re-enqueued.",
		},
		[]string{"type"},
	)

	providerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_provider_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "success"},
	)
)

func IncTaskRouted(taskType, priority string) {
	tasksRouted.WithLabelValues(norm(taskType), norm(priority)).Inc()
}

func IncTaskFinished(taskType, status string) {
	tasksFinished.WithLabelValues(norm(taskType), norm(status)).Inc()
}

func IncTaskRetry(taskType string) {
	taskRetries.WithLabelValues(norm(taskType)).Inc()
}

func ObserveProviderCall(provider, model string, latencyMs int, success bool) {
	providerLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).Observe(float64(latencyMs))
}
