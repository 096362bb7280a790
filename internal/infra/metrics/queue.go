package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(queueDepth, queueDropped)
}

var (
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_queue_depth",
			Help: "Current number of queued jobs per category.",
		},
		[]string{"category"},
	)

	queueDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_queue_dropped_total",
			Help: "Jobs rejected because the category queue was full.",
		},
		[]string{"category"},
	)
)

func SetQueueDepth(category string, depth int) {
	queueDepth.WithLabelValues(norm(category)).Set(float64(depth))
}

func IncQueueDropped(category string) {
	queueDropped.WithLabelValues(norm(category)).Inc()
}
