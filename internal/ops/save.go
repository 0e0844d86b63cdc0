package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

// SaveInput contains parameters for the SaveToCollection operation.
type SaveInput struct {
	CallerID string
	SharedID string
}

// SaveToCollection copies a received snapshot into a brand-new upload owned
// by the caller. The snapshot must be the caller's (NOT_FOUND otherwise) and
// carry allow-reshare (FORBIDDEN otherwise). The new upload is independent:
// it does not reference the snapshot or its source.
func SaveToCollection(ctx context.Context, database *sql.DB, input SaveInput) (*analysis.Upload, error) {
	callerID, err := requireID("user_id", input.CallerID)
	if err != nil {
		return nil, err
	}
	sharedID, err := requireID("shared_id", input.SharedID)
	if err != nil {
		return nil, err
	}

	var u *analysis.Upload
	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		s, err := db.GetShare(ctx, database, sharedID)
		if err != nil {
			return err
		}
		if s.RecipientID != callerID {
			return errors.NewNotFound("shared analysis", sharedID)
		}
		if !s.Permission.CanReshare() {
			return errors.NewForbidden("shared analysis is view-only")
		}

		u = &analysis.Upload{
			ID:        newID(),
			OwnerID:   callerID,
			Title:     analysis.BaseTitle(s.Title),
			Content:   s.Content,
			CreatedAt: nowMillis(),
		}
		return db.InsertUpload(ctx, database, u)
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}
	return u, nil
}
