package lockout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	failuresRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockout_failures_recorded_total",
			Help: "Total number of failed authentication attempts recorded",
		},
	)

	locksTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockout_locks_triggered_total",
			Help: "Total number of identifiers that transitioned into the locked state",
		},
	)

	lockedRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lockout_rejections_total",
			Help: "Total number of attempts rejected because the identifier was locked",
		},
	)

	resets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockout_resets_total",
			Help: "Total number of lockout resets by reason",
		},
		[]string{"reason"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockout_store_errors_total",
			Help: "Total number of lockout store failures by operation",
		},
		[]string{"operation"},
	)
)
