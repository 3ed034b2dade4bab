// Package metrics provides observability for the directory module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks directory mutations and reconciliation behavior.
type Metrics struct {
	UsersCreated       prometheus.Counter
	UsersRemoved       prometheus.Counter
	AliasesCreated     prometheus.Counter
	AliasesRemoved     prometheus.Counter
	ReconcileRuns      prometheus.Counter
	ReconcileActions   prometheus.Counter
	ReconcileDuration  prometheus.Histogram
	CollaboratorErrors *prometheus.CounterVec
}

// New creates a Metrics instance with all directory metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_users_created_total",
			Help: "Total number of mail users created",
		}),
		UsersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_users_removed_total",
			Help: "Total number of mail users removed",
		}),
		AliasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_aliases_created_total",
			Help: "Total number of mail aliases created or updated",
		}),
		AliasesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_aliases_removed_total",
			Help: "Total number of mail aliases removed",
		}),
		ReconcileRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_reconcile_runs_total",
			Help: "Total number of reconciliation passes",
		}),
		ReconcileActions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailkeep_reconcile_actions_total",
			Help: "Required aliases added plus stale aliases removed by reconciliation",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailkeep_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes including DNS/web regeneration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mailkeep_collaborator_errors_total",
			Help: "Failures of external collaborators by kind",
		}, []string{"collaborator"}),
	}
}

// ObserveReconcile records the duration of a reconciliation pass.
// Call with time.Now() captured at the start of the pass.
func (m *Metrics) ObserveReconcile(start time.Time) {
	m.ReconcileRuns.Inc()
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}
