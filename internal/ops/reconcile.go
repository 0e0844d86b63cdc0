package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/metrics"
)

// ReconcileOutput contains the result of one reconciler run.
type ReconcileOutput struct {
	FixedTitles       int    `json:"fixed_titles"`
	DeletedOrphans    int    `json:"deleted_orphans"`
	DeletedDuplicates int    `json:"deleted_duplicates"`
	Failures          int    `json:"failures"`
	Message           string `json:"message"`
}

// Reconciler repairs analysis rows that drifted from the store's invariants:
// unnormalized titles, orphans without an upload, and duplicate rows for one
// (upload, owner) pair. It is safe to run alongside live traffic.
type Reconciler struct {
	db  *sql.DB
	log *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger uses slog.Default().
func NewReconciler(database *sql.DB, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{db: database, log: logger.With("component", "reconciler")}
}

// Run executes the three passes in order: titles, orphans, duplicates.
// Per-row and per-group failures are logged, counted and skipped. The
// returned error is non-nil only when ctx is done.
//
// A second Run with no intervening writes reports zero for every count.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileOutput, error) {
	out := &ReconcileOutput{}

	out.FixedTitles = r.fixTitles(ctx, out)
	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.DeletedOrphans = r.deleteOrphans(ctx, out)
	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.DeletedDuplicates = r.collapseDuplicates(ctx, out)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	out.Message = formatReconcileMessage(out)
	r.log.Info("reconcile finished",
		"fixed_titles", out.FixedTitles,
		"deleted_orphans", out.DeletedOrphans,
		"deleted_duplicates", out.DeletedDuplicates,
		"failures", out.Failures,
	)
	return out, nil
}

// RunEvery calls Run every interval until ctx is cancelled.
// A non-positive interval returns immediately.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reconcile run failed", "error", err)
			}
		}
	}
}

// fixTitles rewrites every title whose normalized form differs.
func (r *Reconciler) fixTitles(ctx context.Context, out *ReconcileOutput) int {
	rows, err := db.ListTitles(ctx, r.db)
	if err != nil {
		r.fail(out, metrics.PassTitles, "list titles failed", err)
		return 0
	}

	fixed := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		norm := analysis.NormalizeTitle(row.Title)
		if norm == row.Title {
			continue
		}
		changed, err := db.UpdateTitle(ctx, r.db, row.ID, norm)
		if err != nil {
			r.fail(out, metrics.PassTitles, "title fix failed", err, "analysis_id", row.ID)
			continue
		}
		if changed {
			fixed++
		}
	}
	metrics.ReconcileRows.WithLabelValues(metrics.PassTitles).Add(float64(fixed))
	return fixed
}

// deleteOrphans removes each analysis with no upload together with its
// snapshots, one transaction per orphan.
func (r *Reconciler) deleteOrphans(ctx context.Context, out *ReconcileOutput) int {
	ids, err := db.ListOrphanIDs(ctx, r.db)
	if err != nil {
		r.fail(out, metrics.PassOrphans, "list orphans failed", err)
		return 0
	}

	deleted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		var removed bool
		err := db.RunInTx(ctx, r.db, func(ctx context.Context) error {
			if _, err := db.DeleteSharesForAnalysis(ctx, r.db, id); err != nil {
				return err
			}
			var err error
			removed, err = db.DeleteAnalysis(ctx, r.db, id)
			return err
		})
		if err != nil {
			r.fail(out, metrics.PassOrphans, "orphan delete failed", err, "analysis_id", id)
			continue
		}
		if removed {
			deleted++
		}
	}
	metrics.ReconcileRows.WithLabelValues(metrics.PassOrphans).Add(float64(deleted))
	return deleted
}

// collapseDuplicates keeps the newest row of each (upload, owner) group,
// refreshes its created_at, and deletes the others with their snapshots.
// Each group is one transaction; membership is re-read inside it so a row
// written after the group was listed is never removed.
func (r *Reconciler) collapseDuplicates(ctx context.Context, out *ReconcileOutput) int {
	groups, err := db.ListDuplicateGroups(ctx, r.db)
	if err != nil {
		r.fail(out, metrics.PassDuplicates, "list duplicate groups failed", err)
		return 0
	}

	deleted := 0
	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		var n int
		err := db.RunInTx(ctx, r.db, func(ctx context.Context) error {
			n = 0
			members, err := db.ListGroupMembers(ctx, r.db, g)
			if err != nil {
				return err
			}
			if len(members) < 2 {
				return nil
			}
			keep := members[0]
			for _, m := range members[1:] {
				if m.CreatedAt > keep.CreatedAt {
					continue
				}
				if _, err := db.DeleteSharesForAnalysis(ctx, r.db, m.ID); err != nil {
					return err
				}
				removed, err := db.DeleteAnalysis(ctx, r.db, m.ID)
				if err != nil {
					return err
				}
				if removed {
					n++
				}
			}
			return db.TouchAnalysis(ctx, r.db, keep.ID, max(nowMillis(), keep.CreatedAt))
		})
		if err != nil {
			r.fail(out, metrics.PassDuplicates, "duplicate collapse failed", err,
				"upload_id", g.UploadID, "owner_id", g.OwnerID)
			continue
		}
		deleted += n
	}
	metrics.ReconcileRows.WithLabelValues(metrics.PassDuplicates).Add(float64(deleted))
	return deleted
}

func (r *Reconciler) fail(out *ReconcileOutput, pass, msg string, err error, attrs ...any) {
	out.Failures++
	metrics.ReconcileFailures.WithLabelValues(pass).Inc()
	r.log.Warn(msg, append([]any{"pass", pass, "error", err}, attrs...)...)
}

// formatReconcileMessage creates a human-readable summary of a run.
func formatReconcileMessage(out *ReconcileOutput) string {
	if out.FixedTitles == 0 && out.DeletedOrphans == 0 && out.DeletedDuplicates == 0 {
		msg := "Nothing to reconcile"
		if out.Failures > 0 {
			msg += fmt.Sprintf(" (%d failures, see log)", out.Failures)
		}
		return msg
	}

	msg := fmt.Sprintf("Fixed %d %s, deleted %d %s and %d %s",
		out.FixedTitles, plural(out.FixedTitles, "title", "titles"),
		out.DeletedOrphans, plural(out.DeletedOrphans, "orphan", "orphans"),
		out.DeletedDuplicates, plural(out.DeletedDuplicates, "duplicate", "duplicates"))
	if out.Failures > 0 {
		msg += fmt.Sprintf(" (%d failures, see log)", out.Failures)
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
