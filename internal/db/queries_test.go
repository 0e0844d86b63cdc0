package db

import (
	"context"
	"testing"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

func TestInsertUser_UsernameConflictCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "01A", "Alice")

	err := InsertUser(context.Background(), db, &analysis.User{ID: "01B", Username: "alice", CreatedAt: 1})
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("InsertUser() error = %v, want CONFLICT", err)
	}

	u, err := GetUserByUsername(context.Background(), db, "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if u.ID != "01A" {
		t.Errorf("ID = %q, want 01A", u.ID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetUser(context.Background(), db, "nope")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetUser() error = %v, want NOT_FOUND", err)
	}
}

func TestMissingUsers(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "01A", "alice")
	seedUser(t, db, "01B", "bob")

	missing, err := MissingUsers(context.Background(), db, []string{"01B", "01X", "01A", "01Y"})
	if err != nil {
		t.Fatalf("MissingUsers() error = %v", err)
	}
	if len(missing) != 2 || missing[0] != "01X" || missing[1] != "01Y" {
		t.Errorf("missing = %v, want [01X 01Y]", missing)
	}
}

func TestUploads_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")

	for i, id := range []string{"01U1", "01U2", "01U3"} {
		err := InsertUpload(ctx, db, &analysis.Upload{
			ID: id, OwnerID: "01A", Title: "t", Content: "c",
			Filename: stringPtr("f.txt"), CreatedAt: int64(100 + i),
		})
		if err != nil {
			t.Fatalf("InsertUpload() error = %v", err)
		}
	}

	items, total, err := ListUploads(ctx, db, "01A", 2, 0)
	if err != nil {
		t.Fatalf("ListUploads() error = %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 3/2", total, len(items))
	}
	if items[0].ID != "01U3" {
		t.Errorf("first item = %s, want newest 01U3", items[0].ID)
	}
	if items[0].Filename == nil || *items[0].Filename != "f.txt" {
		t.Errorf("Filename = %v, want f.txt", items[0].Filename)
	}

	if err := DeleteUpload(ctx, db, "01U3"); err != nil {
		t.Fatalf("DeleteUpload() error = %v", err)
	}
	if err := DeleteUpload(ctx, db, "01U3"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteUpload() error = %v, want NOT_FOUND", err)
	}
}

func TestDeleteUpload_CascadesAnalysesNotShares(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")
	seedUser(t, db, "01B", "bob")
	seedUpload(t, db, "01U", "01A")
	r := seedAnalysis(t, db, "01R", "01A", stringPtr("01U"), "addr1", 10)

	snap := analysis.Snapshot(r)
	snap.ID, snap.SharerID, snap.RecipientID = "01S", "01A", "01B"
	snap.Permission = analysis.PermissionViewOnly
	snap.CreatedAt, snap.UpdatedAt = 20, 20
	if err := UpsertShare(ctx, db, &snap); err != nil {
		t.Fatalf("UpsertShare() error = %v", err)
	}

	if err := DeleteUpload(ctx, db, "01U"); err != nil {
		t.Fatalf("DeleteUpload() error = %v", err)
	}

	if _, err := GetAnalysis(ctx, db, "01R"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("analysis should be cascaded away, got %v", err)
	}
	if _, err := GetShare(ctx, db, "01S"); err != nil {
		t.Errorf("snapshot should survive upload deletion, got %v", err)
	}
}

func TestInsertAnalysis_AddressCollision(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "01A", "alice")
	seedUpload(t, db, "01U", "01A")
	seedAnalysis(t, db, "01R1", "01A", stringPtr("01U"), "sameaddr", 1)

	err := InsertAnalysis(context.Background(), db, &analysis.Result{
		ID: "01R2", OwnerID: "01A", UploadID: stringPtr("01U"),
		Title: "Analysis Result: x", Content: "x", Address: "sameaddr", CreatedAt: 2,
	})
	if err != ErrAddressTaken {
		t.Errorf("InsertAnalysis() error = %v, want ErrAddressTaken", err)
	}
}

func TestAnalysis_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")
	seedUpload(t, db, "01U", "01A")
	seedAnalysis(t, db, "01R", "01A", stringPtr("01U"), "addr1", 10)

	got, err := GetAnalysisByAddress(ctx, db, "addr1")
	if err != nil {
		t.Fatalf("GetAnalysisByAddress() error = %v", err)
	}
	if got.ID != "01R" || got.UploadID == nil || *got.UploadID != "01U" {
		t.Errorf("unexpected row: %+v", got)
	}
	if string(got.Sentiment) != `{"label":"Neutral"}` {
		t.Errorf("Sentiment = %s", got.Sentiment)
	}
	if got.Ngrams != nil {
		t.Errorf("Ngrams = %s, want nil", got.Ngrams)
	}

	got.Content = "v2"
	got.Title = "Analysis Result: v2"
	got.CreatedAt = 50
	got.Ngrams = []byte(`[["a",1]]`)
	if err := UpdateAnalysis(ctx, db, got); err != nil {
		t.Fatalf("UpdateAnalysis() error = %v", err)
	}

	again, err := GetAnalysis(ctx, db, "01R")
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v", err)
	}
	if again.Content != "v2" || again.CreatedAt != 50 || again.Address != "addr1" {
		t.Errorf("update not applied or address changed: %+v", again)
	}
	if string(again.Ngrams) != `[["a",1]]` {
		t.Errorf("Ngrams = %s", again.Ngrams)
	}
}

func TestLatestAnalysisFor_TieBreakByID(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "01A", "alice")
	seedUpload(t, db, "01U", "01A")
	seedAnalysis(t, db, "01R1", "01A", stringPtr("01U"), "a1", 100)
	seedAnalysis(t, db, "01R3", "01A", stringPtr("01U"), "a3", 100)
	seedAnalysis(t, db, "01R2", "01A", stringPtr("01U"), "a2", 90)

	got, err := LatestAnalysisFor(context.Background(), db, "01U", "01A")
	if err != nil {
		t.Fatalf("LatestAnalysisFor() error = %v", err)
	}
	if got.ID != "01R3" {
		t.Errorf("ID = %s, want 01R3", got.ID)
	}

	if _, err := LatestAnalysisFor(context.Background(), db, "01U", "01OTHER"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("LatestAnalysisFor(other owner) error = %v, want NOT_FOUND", err)
	}
}

func TestReconcileQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")
	seedUpload(t, db, "01U", "01A")
	seedUpload(t, db, "01V", "01A")
	seedAnalysis(t, db, "01O", "01A", nil, "orphan", 1)
	seedAnalysis(t, db, "01R1", "01A", stringPtr("01U"), "a1", 10)
	seedAnalysis(t, db, "01R2", "01A", stringPtr("01U"), "a2", 20)
	seedAnalysis(t, db, "01R3", "01A", stringPtr("01V"), "a3", 30)

	orphans, err := ListOrphanIDs(ctx, db)
	if err != nil {
		t.Fatalf("ListOrphanIDs() error = %v", err)
	}
	if len(orphans) != 1 || orphans[0] != "01O" {
		t.Errorf("orphans = %v, want [01O]", orphans)
	}

	groups, err := ListDuplicateGroups(ctx, db)
	if err != nil {
		t.Fatalf("ListDuplicateGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0] != (Group{UploadID: "01U", OwnerID: "01A"}) {
		t.Fatalf("groups = %v, want one group for 01U", groups)
	}

	members, err := ListGroupMembers(ctx, db, groups[0])
	if err != nil {
		t.Fatalf("ListGroupMembers() error = %v", err)
	}
	if len(members) != 2 || members[0].ID != "01R2" {
		t.Errorf("members = %v, want 01R2 first", members)
	}

	changed, err := UpdateTitle(ctx, db, "01R1", "Analysis Result: Essay")
	if err != nil || changed {
		t.Errorf("UpdateTitle(same) = %v, %v; want false, nil", changed, err)
	}
	changed, err = UpdateTitle(ctx, db, "01R1", "Analysis Result: New")
	if err != nil || !changed {
		t.Errorf("UpdateTitle(new) = %v, %v; want true, nil", changed, err)
	}

	if err := TouchAnalysis(ctx, db, "01R2", 99); err != nil {
		t.Fatalf("TouchAnalysis() error = %v", err)
	}
	deleted, err := DeleteAnalysis(ctx, db, "01R1")
	if err != nil || !deleted {
		t.Errorf("DeleteAnalysis() = %v, %v", deleted, err)
	}
	deleted, err = DeleteAnalysis(ctx, db, "01R1")
	if err != nil || deleted {
		t.Errorf("second DeleteAnalysis() = %v, %v; want false, nil", deleted, err)
	}
}

func TestUpsertShare_UpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")
	seedUser(t, db, "01B", "bob")
	seedUpload(t, db, "01U", "01A")
	r := seedAnalysis(t, db, "01R", "01A", stringPtr("01U"), "addr1", 10)

	first := analysis.Snapshot(r)
	first.ID, first.SharerID, first.RecipientID = "01S1", "01A", "01B"
	first.Permission = analysis.PermissionViewOnly
	first.CreatedAt, first.UpdatedAt = 20, 20
	if err := UpsertShare(ctx, db, &first); err != nil {
		t.Fatalf("UpsertShare() error = %v", err)
	}

	second := analysis.Snapshot(r)
	second.ID, second.SharerID, second.RecipientID = "01S2", "01A", "01B"
	second.Permission = analysis.PermissionAllowReshare
	second.Message = stringPtr("take a look")
	second.Content = "v2"
	second.CreatedAt, second.UpdatedAt = 30, 30
	if err := UpsertShare(ctx, db, &second); err != nil {
		t.Fatalf("second UpsertShare() error = %v", err)
	}

	// The conflict path keeps the original id and created_at
	if second.ID != "01S1" || second.CreatedAt != 20 {
		t.Errorf("after upsert ID=%s CreatedAt=%d, want 01S1/20", second.ID, second.CreatedAt)
	}

	got, err := GetShareFor(ctx, db, "01B", "01R")
	if err != nil {
		t.Fatalf("GetShareFor() error = %v", err)
	}
	if got.Content != "v2" || got.Permission != analysis.PermissionAllowReshare || got.UpdatedAt != 30 {
		t.Errorf("snapshot not refreshed: %+v", got)
	}
	if got.Message == nil || *got.Message != "take a look" {
		t.Errorf("Message = %v", got.Message)
	}

	items, total, err := ListSharesByRecipient(ctx, db, "01B", 10, 0)
	if err != nil {
		t.Fatalf("ListSharesByRecipient() error = %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("total=%d len=%d, want 1/1", total, len(items))
	}

	byAddr, err := GetShareByAddress(ctx, db, "01B", "addr1")
	if err != nil || byAddr.ID != "01S1" {
		t.Errorf("GetShareByAddress() = %v, %v", byAddr, err)
	}

	n, err := DeleteSharesForAnalysis(ctx, db, "01R")
	if err != nil || n != 1 {
		t.Errorf("DeleteSharesForAnalysis() = %d, %v; want 1, nil", n, err)
	}
	if c, _ := CountSharesForAnalysis(ctx, db, "01R"); c != 0 {
		t.Errorf("CountSharesForAnalysis() = %d, want 0", c)
	}
}

func TestConnections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "01A", "alice")
	seedUser(t, db, "01B", "Bob_Smith")
	seedUser(t, db, "01C", "carol")
	seedUser(t, db, "01D", "bobby")
	seedUser(t, db, "01E", "Zoë")

	for _, other := range []string{"01B", "01C", "01D", "01E"} {
		if err := InsertConnection(ctx, db, &analysis.Connection{UserID: "01A", ConnectedUserID: other, CreatedAt: 1}); err != nil {
			t.Fatalf("InsertConnection(%s) error = %v", other, err)
		}
	}

	err := InsertConnection(ctx, db, &analysis.Connection{UserID: "01A", ConnectedUserID: "01B", CreatedAt: 2})
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("duplicate InsertConnection() error = %v, want CONFLICT", err)
	}

	// Reverse edge is independent
	if ok, _ := HasConnection(ctx, db, "01B", "01A"); ok {
		t.Error("reverse edge should not be implied")
	}

	all, err := ListConnectedUsers(ctx, db, "01A", "")
	if err != nil {
		t.Fatalf("ListConnectedUsers() error = %v", err)
	}
	if len(all) != 4 || all[0].Username != "Bob_Smith" || all[1].Username != "bobby" {
		t.Errorf("all = %v", all)
	}

	matched, err := ListConnectedUsers(ctx, db, "01A", "BOB")
	if err != nil {
		t.Fatalf("ListConnectedUsers(BOB) error = %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("matched = %v, want 2", matched)
	}

	// Underscore is literal, not a single-char wildcard
	literal, err := ListConnectedUsers(ctx, db, "01A", "b_s")
	if err != nil {
		t.Fatalf("ListConnectedUsers(b_s) error = %v", err)
	}
	if len(literal) != 1 || literal[0].ID != "01B" {
		t.Errorf("literal = %v, want only Bob_Smith", literal)
	}

	// Case folding covers non-ASCII letters
	folded, err := ListConnectedUsers(ctx, db, "01A", "ZOË")
	if err != nil {
		t.Fatalf("ListConnectedUsers(ZOË) error = %v", err)
	}
	if len(folded) != 1 || folded[0].ID != "01E" {
		t.Errorf("folded = %v, want only Zoë", folded)
	}

	if err := DeleteConnection(ctx, db, "01A", "01C"); err != nil {
		t.Fatalf("DeleteConnection() error = %v", err)
	}
	if err := DeleteConnection(ctx, db, "01A", "01C"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteConnection() error = %v, want NOT_FOUND", err)
	}
}
