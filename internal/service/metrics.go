package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibe_reconcile_outcomes_total",
			Help: "Total number of reconciliation invocations, partitioned by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
	creditDeductions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibe_credit_deductions_total",
			Help: "Total number of credit deduction attempts, partitioned by result.",
		},
		[]string{"result"},
	)
	coverRegenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibe_cover_regenerations_total",
			Help: "Total number of cover image regenerations, partitioned by result.",
		},
		[]string{"result"},
	)
	recheckScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibe_callback_rechecks_scheduled_total",
			Help: "Total number of delayed provider re-checks scheduled by the callback path.",
		},
	)
)
