package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Matching lifecycle counters, exposed on /metrics.
var (
	RequestsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_requests_enqueued_total",
		Help: "Number of matching requests created.",
	})

	PairsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_pairs_matched_total",
		Help: "Number of provisional pairings made by the matcher.",
	})

	PairsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_pairs_confirmed_total",
		Help: "Number of pairs that double-confirmed into a live session.",
	})

	PairsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_pairs_expired_total",
		Help: "Number of pairs expired by the confirmation window or disconnection.",
	})

	RequestsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_requests_requeued_total",
		Help: "Number of requests re-created after a pair expiry.",
	})

	QueueSweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_queue_sweep_expired_total",
		Help: "Number of pending requests expired by the queue-timeout sweep.",
	})
)
