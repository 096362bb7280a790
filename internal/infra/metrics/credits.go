package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(creditsReserved, creditsRefunded, creditBlocks, limiterRejections)
}

var (
	creditsReserved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_credits_reserved_total",
			Help: "Credits debited ahead of task dispatch.",
		},
	)

	creditsRefunded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_credits_refunded_total",
			Help: "Credits returned after failed paid tasks.",
		},
	)

	creditBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_credit_blocks_total",
			Help: "Requests rejected for insufficient credits.",
		},
	)

	limiterRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter per scope (ip/user).",
		},
		[]string{"scope"},
	)
)

func AddCreditsReserved(n int64)  { creditsReserved.Add(float64(n)) }
func AddCreditsRefunded(n int64)  { creditsRefunded.Add(float64(n)) }
func IncCreditBlocked()           { creditBlocks.Inc() }
func IncLimiterRejected(sc string) { limiterRejections.WithLabelValues(norm(sc)).Inc() }
