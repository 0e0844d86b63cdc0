package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

// CreateUploadInput contains parameters for the CreateUpload operation.
type CreateUploadInput struct {
	OwnerID  string
	Title    string  // default: filename, else "Untitled"
	Content  string  // required
	Filename *string // optional
}

// CreateUpload stores a new text for an existing user.
func CreateUpload(ctx context.Context, database *sql.DB, input CreateUploadInput) (*analysis.Upload, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewValidation("content is required")
	}

	filename := cleanOptionalString(input.Filename)
	title := strings.TrimSpace(input.Title)
	if title == "" && filename != nil {
		title = *filename
	}
	if title == "" {
		title = "Untitled"
	}

	u := &analysis.Upload{
		ID:        newID(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   input.Content,
		Filename:  filename,
		CreatedAt: nowMillis(),
	}

	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		if _, err := db.GetUser(ctx, database, ownerID); err != nil {
			return err
		}
		return db.InsertUpload(ctx, database, u)
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}
	return u, nil
}

// ListUploadsInput contains parameters for the ListUploads operation.
type ListUploadsInput struct {
	OwnerID string
	Limit   int // default: 20, max: 100
	Offset  int
}

// ListUploadsOutput contains the result of the ListUploads operation.
type ListUploadsOutput struct {
	Items      []analysis.Upload `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// ListUploads returns the owner's uploads, newest first.
func ListUploads(ctx context.Context, database *sql.DB, input ListUploadsInput) (*ListUploadsOutput, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	limit, offset := page(input.Limit, input.Offset)

	items, total, err := db.ListUploads(ctx, database, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListUploadsOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
	}, nil
}

// DeleteUploadInput contains parameters for the DeleteUpload operation.
type DeleteUploadInput struct {
	OwnerID  string
	UploadID string
}

// DeleteUploadOutput contains the result of the DeleteUpload operation.
type DeleteUploadOutput struct {
	UploadID string `json:"upload_id"`
	Deleted  bool   `json:"deleted"`
}

// DeleteUpload removes an upload owned by the caller together with its
// analyses. Shared snapshots of those analyses are kept. Uploads owned by
// someone else are reported as NOT_FOUND.
func DeleteUpload(ctx context.Context, database *sql.DB, input DeleteUploadInput) (*DeleteUploadOutput, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	uploadID, err := requireID("upload_id", input.UploadID)
	if err != nil {
		return nil, err
	}

	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		if _, err := ownedUpload(ctx, database, ownerID, uploadID); err != nil {
			return err
		}
		return db.DeleteUpload(ctx, database, uploadID)
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}
	return &DeleteUploadOutput{UploadID: uploadID, Deleted: true}, nil
}

// ownedUpload loads an upload and hides it from anyone but its owner.
func ownedUpload(ctx context.Context, database *sql.DB, ownerID, uploadID string) (*analysis.Upload, error) {
	u, err := db.GetUpload(ctx, database, uploadID)
	if err != nil {
		return nil, err
	}
	if u.OwnerID != ownerID {
		return nil, errors.NewNotFound("upload", uploadID)
	}
	return u, nil
}
