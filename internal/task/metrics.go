package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_polls_total",
			Help: "Total number of remote task status polls",
		},
	)

	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_outcomes_total",
			Help: "Terminal outcomes of polled remote tasks",
		},
		[]string{"outcome"},
	)

	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_wait_duration_seconds",
			Help:    "Wall-clock time spent waiting for a remote task to terminate",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
)

const (
	outcomeSucceeded      = "succeeded"
	outcomeFailed         = "failed"
	outcomeTimeout        = "timeout"
	outcomeTransportError = "transport_error"
	outcomeProtocolError  = "protocol_error"
	outcomeCanceled       = "canceled"
)

func recordOutcome(outcome string, seconds float64) {
	outcomesTotal.WithLabelValues(outcome).Inc()
	waitDuration.WithLabelValues(outcome).Observe(seconds)
}
