// Package monitoring defines the Prometheus metrics exported by the
// service. Counters are registered with promauto so importing the
// package is enough to expose them on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HoldsTotal counts hold attempts partitioned by outcome
	// (created, insufficient, invalid, error).
	HoldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_holds_total",
		Help: "Number of reservation hold attempts by outcome.",
	}, []string{"status"})

	// AllocationsTotal counts checkout attempts partitioned by outcome
	// (completed, expired, terminal, forbidden, error). An idempotent
	// replay counts as completed.
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_allocations_total",
		Help: "Number of reservation checkout attempts by outcome.",
	}, []string{"status"})

	// CheckinsTotal counts gate scans partitioned by outcome
	// (checked_in, undone, duplicate, forbidden, error).
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_checkins_total",
		Help: "Number of ticket check-in transitions by outcome.",
	}, []string{"status"})

	// CapacityAnomaliesTotal counts ledger rejections of commits for
	// reservations that were admitted as valid. It should stay at zero;
	// any increment means hold accounting and the ledger disagree.
	CapacityAnomaliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketing_capacity_anomalies_total",
		Help: "Number of ledger commit rejections for admitted reservations.",
	})

	// SweptReservationsTotal counts reservations retired by the
	// background expiry sweeper.
	SweptReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketing_swept_reservations_total",
		Help: "Number of expired reservations retired by the sweeper.",
	})
)
