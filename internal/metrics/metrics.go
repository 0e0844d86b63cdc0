// Package metrics declares the Prometheus counters exported by lexis.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upsert outcomes.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
)

// Reconciler passes.
const (
	PassTitles     = "titles"
	PassOrphans    = "orphans"
	PassDuplicates = "duplicates"
)

var (
	// AnalysisUpserts counts analysis store writes by outcome.
	AnalysisUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_analysis_upserts_total",
		Help: "Analysis upserts by outcome (created, updated)",
	}, []string{"outcome"})

	// SharesWritten counts snapshot rows inserted or refreshed.
	SharesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexis_shares_written_total",
		Help: "Shared analysis snapshots written",
	})

	// ReconcileRows counts rows repaired by the reconciler per pass.
	ReconcileRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_reconcile_rows_total",
		Help: "Rows fixed or deleted by the reconciler, by pass",
	}, []string{"pass"})

	// ReconcileFailures counts rows or groups the reconciler skipped after an error.
	ReconcileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_reconcile_failures_total",
		Help: "Reconciler row or group failures, by pass",
	}, []string{"pass"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
