package ops

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

func freezeNow(t *testing.T, at int64) {
	t.Helper()
	orig := nowMillis
	t.Cleanup(func() { nowMillis = orig })
	nowMillis = func() int64 { return at }
}

func TestReconcile_OrphansDuplicatesAndTitles(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	reader := mustUser(t, database, "reader")
	up := mustUpload(t, database, owner.ID, "Essay", "text")

	orphanA := insertRawAnalysis(t, database, owner.ID, nil, "Analysis Result: Lost", 10)
	insertRawAnalysis(t, database, owner.ID, nil, "Analysis Result: Also lost", 20)
	oldest := insertRawAnalysis(t, database, owner.ID, &up.ID, "Foo", 1000)
	insertRawAnalysis(t, database, owner.ID, &up.ID, "Analysis of Bar", 2000)
	newest := insertRawAnalysis(t, database, owner.ID, &up.ID, "Analysis Result: Baz", 3000)

	_, err := ShareMany(ctx, database, nil, ShareManyInput{
		AnalysisIDs:  []string{orphanA.ID, oldest.ID, newest.ID},
		SharerID:     owner.ID,
		RecipientIDs: []string{reader.ID},
	})
	require.NoError(t, err)

	freezeNow(t, 5_000_000)
	out, err := newTestReconciler(database).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, 2, out.FixedTitles)
	require.Equal(t, 2, out.DeletedOrphans)
	require.Equal(t, 2, out.DeletedDuplicates)
	require.Zero(t, out.Failures)
	require.Equal(t, "Fixed 2 titles, deleted 2 orphans and 2 duplicates", out.Message)

	require.Equal(t, 1, countRows(t, database, "analyses"))
	kept, err := db.GetAnalysis(ctx, database, newest.ID)
	require.NoError(t, err)
	require.Equal(t, "Analysis Result: Baz", kept.Title)
	require.Equal(t, int64(5_000_000), kept.CreatedAt, "survivor's timestamp is refreshed")
	require.Equal(t, newest.Address, kept.Address)

	// Only the survivor's snapshot remains.
	n, err := db.CountSharesForAnalysis(ctx, database, newest.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, countRows(t, database, "shared_analyses"))

	_, err = db.GetAnalysis(ctx, database, oldest.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestReconcile_Idempotent(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	up := mustUpload(t, database, owner.ID, "Essay", "text")

	insertRawAnalysis(t, database, owner.ID, nil, "orphan", 10)
	insertRawAnalysis(t, database, owner.ID, &up.ID, "a", 1000)
	insertRawAnalysis(t, database, owner.ID, &up.ID, "b", 2000)

	r := newTestReconciler(database)
	first, err := r.Run(ctx)
	require.NoError(t, err)
	require.NotZero(t, first.DeletedDuplicates)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, second.FixedTitles)
	require.Zero(t, second.DeletedOrphans)
	require.Zero(t, second.DeletedDuplicates)
	require.Equal(t, "Nothing to reconcile", second.Message)
}

func TestReconcile_FailedGroupIsSkipped(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	stuck := mustUpload(t, database, owner.ID, "Stuck", "text")
	clean := mustUpload(t, database, owner.ID, "Clean", "text")

	insertRawAnalysis(t, database, owner.ID, &stuck.ID, "Analysis Result: Stuck", 3000)
	insertRawAnalysis(t, database, owner.ID, &stuck.ID, "Analysis Result: Stuck", 2000)
	blocked := insertRawAnalysis(t, database, owner.ID, &stuck.ID, "Analysis Result: Stuck", 1000)
	insertRawAnalysis(t, database, owner.ID, &clean.ID, "Analysis Result: Clean", 2000)
	insertRawAnalysis(t, database, owner.ID, &clean.ID, "Analysis Result: Clean", 1000)

	_, err := database.ExecContext(ctx, fmt.Sprintf(
		`CREATE TRIGGER block_delete BEFORE DELETE ON analyses WHEN old.id = '%s'
		 BEGIN SELECT RAISE(ABORT, 'delete blocked'); END`, blocked.ID))
	require.NoError(t, err)

	out, err := newTestReconciler(database).Run(ctx)
	require.NoError(t, err, "a failed group does not fail the run")
	require.Equal(t, 1, out.Failures)
	require.Equal(t, 1, out.DeletedDuplicates)
	require.Contains(t, out.Message, "(1 failures, see log)")

	require.Equal(t, 1, countAnalysesFor(t, database, clean.ID, owner.ID))
	require.Equal(t, 3, countAnalysesFor(t, database, stuck.ID, owner.ID), "failed group rolls back as a whole")
}

func TestReconcile_TitlesAreNormalizedEverywhere(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")

	for i, title := range []string{"Foo", "Analysis of Bar", "Analysis Result:Baz", "", "Analysis Result: Ok"} {
		up := mustUpload(t, database, owner.ID, "t", "c")
		insertRawAnalysis(t, database, owner.ID, &up.ID, title, int64(i))
	}

	out, err := newTestReconciler(database).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, out.FixedTitles)

	rows, err := db.ListTitles(ctx, database)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, analysis.NormalizeTitle(row.Title), row.Title)
	}
}

func TestReconcile_CancelledContext(t *testing.T) {
	database := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReconciler(database).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunEvery(t *testing.T) {
	database := setupDB(t)
	owner := mustUser(t, database, "owner")
	insertRawAnalysis(t, database, owner.ID, nil, "orphan", 10)

	r := newTestReconciler(database)
	require.NoError(t, r.RunEvery(context.Background(), 0), "non-positive interval returns at once")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunEvery(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return countRows(t, database, "analyses") == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop after cancel")
	}
}

func TestFormatReconcileMessage(t *testing.T) {
	tests := []struct {
		out  ReconcileOutput
		want string
	}{
		{ReconcileOutput{}, "Nothing to reconcile"},
		{ReconcileOutput{Failures: 2}, "Nothing to reconcile (2 failures, see log)"},
		{ReconcileOutput{FixedTitles: 1, DeletedOrphans: 0, DeletedDuplicates: 3}, "Fixed 1 title, deleted 0 orphans and 3 duplicates"},
		{ReconcileOutput{DeletedOrphans: 1, Failures: 1}, "Fixed 0 titles, deleted 1 orphan and 0 duplicates (1 failures, see log)"},
	}
	for _, tt := range tests {
		if got := formatReconcileMessage(&tt.out); got != tt.want {
			t.Errorf("formatReconcileMessage(%+v) = %q, want %q", tt.out, got, tt.want)
		}
	}
}
