package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/lexis/internal/analysis"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUserCtx(ctx context.Context, t *testing.T, db *sql.DB, id, username string) {
	t.Helper()
	if err := InsertUser(ctx, db, &analysis.User{ID: id, Username: username, CreatedAt: 1}); err != nil {
		t.Fatalf("InsertUser(%s) error = %v", id, err)
	}
}

func seedUser(t *testing.T, db *sql.DB, id, username string) {
	t.Helper()
	seedUserCtx(context.Background(), t, db, id, username)
}

func seedUpload(t *testing.T, db *sql.DB, id, ownerID string) {
	t.Helper()
	err := InsertUpload(context.Background(), db, &analysis.Upload{
		ID: id, OwnerID: ownerID, Title: "Essay", Content: "some text", CreatedAt: 1,
	})
	if err != nil {
		t.Fatalf("InsertUpload(%s) error = %v", id, err)
	}
}

func seedAnalysis(t *testing.T, db *sql.DB, id, ownerID string, uploadID *string, address string, createdAt int64) *analysis.Result {
	t.Helper()
	r := &analysis.Result{
		ID:        id,
		OwnerID:   ownerID,
		UploadID:  uploadID,
		Title:     "Analysis Result: Essay",
		Content:   "some text",
		Address:   address,
		CreatedAt: createdAt,
		Payloads: analysis.Payloads{
			Sentiment: []byte(`{"label":"Neutral"}`),
		},
	}
	if err := InsertAnalysis(context.Background(), db, r); err != nil {
		t.Fatalf("InsertAnalysis(%s) error = %v", id, err)
	}
	return r
}

func stringPtr(s string) *string {
	return &s
}
