package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/logging"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func mustUser(t *testing.T, database *sql.DB, username string) *analysis.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, CreateUserInput{Username: username})
	require.NoError(t, err)
	return u
}

func mustUpload(t *testing.T, database *sql.DB, ownerID, title, content string) *analysis.Upload {
	t.Helper()
	u, err := CreateUpload(context.Background(), database, CreateUploadInput{
		OwnerID: ownerID,
		Title:   title,
		Content: content,
	})
	require.NoError(t, err)
	return u
}

func mustUpsert(t *testing.T, database *sql.DB, ownerID, uploadID, content string) *UpsertOutput {
	t.Helper()
	out, err := Upsert(context.Background(), database, UpsertInput{
		OwnerID:  ownerID,
		UploadID: uploadID,
		Content:  content,
		Payloads: payloadsFor(content),
	})
	require.NoError(t, err)
	return out
}

// insertRawAnalysis bypasses Upsert to create duplicates and orphans the way
// concurrent writers or legacy data would.
func insertRawAnalysis(t *testing.T, database *sql.DB, ownerID string, uploadID *string, title string, createdAt int64) *analysis.Result {
	t.Helper()
	r := &analysis.Result{
		ID:        newID(),
		OwnerID:   ownerID,
		UploadID:  uploadID,
		Title:     title,
		Content:   "raw",
		Address:   analysis.GenerateAddress(ownerID),
		CreatedAt: createdAt,
	}
	require.NoError(t, db.InsertAnalysis(context.Background(), database, r))
	return r
}

func countAnalysesFor(t *testing.T, database *sql.DB, uploadID, ownerID string) int {
	t.Helper()
	var n int
	err := database.QueryRow(
		"SELECT COUNT(*) FROM analyses WHERE upload_id = ? AND owner_id = ?", uploadID, ownerID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func payloadsFor(content string) analysis.Payloads {
	doc, _ := json.Marshal(map[string]string{"text": content})
	return analysis.Payloads{
		Sentiment:       json.RawMessage(`{"sentiment":"Neutral"}`),
		WordFrequencies: doc,
	}
}

func newTestReconciler(database *sql.DB) *Reconciler {
	return NewReconciler(database, logging.Discard())
}

func stringPtr(s string) *string {
	return &s
}
