package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lexis/internal/errors"
)

func TestCreateUpload_Defaults(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")

	u, err := CreateUpload(ctx, database, CreateUploadInput{OwnerID: owner.ID, Content: "text", Filename: stringPtr("notes.txt")})
	require.NoError(t, err)
	require.Equal(t, "notes.txt", u.Title)

	u, err = CreateUpload(ctx, database, CreateUploadInput{OwnerID: owner.ID, Content: "text"})
	require.NoError(t, err)
	require.Equal(t, "Untitled", u.Title)
	require.Nil(t, u.Filename)
}

func TestCreateUpload_Errors(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")

	_, err := CreateUpload(ctx, database, CreateUploadInput{OwnerID: owner.ID, Content: "  "})
	require.True(t, errors.Is(err, errors.ErrValidation))

	_, err = CreateUpload(ctx, database, CreateUploadInput{OwnerID: "01NOBODY", Content: "text"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListUploads(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	other := mustUser(t, database, "other")

	for i := 0; i < 3; i++ {
		mustUpload(t, database, owner.ID, "t", "c")
	}
	mustUpload(t, database, other.ID, "t", "c")

	out, err := ListUploads(ctx, database, ListUploadsInput{OwnerID: owner.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, 3, out.Pagination.Total)
	require.True(t, out.Pagination.HasMore)
}

func TestDeleteUpload_OwnerOnly(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	other := mustUser(t, database, "other")
	up := mustUpload(t, database, owner.ID, "Essay", "text")
	mustUpsert(t, database, owner.ID, up.ID, "text")

	_, err := DeleteUpload(ctx, database, DeleteUploadInput{OwnerID: other.ID, UploadID: up.ID})
	require.True(t, errors.Is(err, errors.ErrNotFound), "non-owner must see NOT_FOUND, got %v", err)

	out, err := DeleteUpload(ctx, database, DeleteUploadInput{OwnerID: owner.ID, UploadID: up.ID})
	require.NoError(t, err)
	require.True(t, out.Deleted)

	// Analyses cascade with the upload
	require.Equal(t, 0, countAnalysesFor(t, database, up.ID, owner.ID))
}
