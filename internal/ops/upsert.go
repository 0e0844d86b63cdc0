package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/metrics"
)

// maxAddressAttempts bounds regeneration after an address collision.
const maxAddressAttempts = 5

// generateAddress is swapped in tests to force collisions.
var generateAddress = analysis.GenerateAddress

// UpsertInput contains parameters for the Upsert operation.
type UpsertInput struct {
	OwnerID  string
	UploadID string
	Title    string // normalized; default: the upload's title
	Content  string // default: the upload's content
	Payloads analysis.Payloads
}

// UpsertOutput contains the result of the Upsert operation.
type UpsertOutput struct {
	Analysis analysis.Result `json:"analysis"`
	Created  bool            `json:"created"`
}

// Upsert writes the analysis for (UploadID, OwnerID) in one transaction.
//
// If rows already exist for the pair, the newest one is overwritten in place
// (title, content, payloads, created_at) and keeps its address. Older
// duplicates left behind by concurrent writers are the reconciler's job.
// Otherwise a new row with a fresh address is inserted.
//
// The upload must exist and belong to OwnerID, otherwise NOT_FOUND.
func Upsert(ctx context.Context, database *sql.DB, input UpsertInput) (*UpsertOutput, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	uploadID, err := requireID("upload_id", input.UploadID)
	if err != nil {
		return nil, err
	}

	var out UpsertOutput
	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		upload, err := ownedUpload(ctx, database, ownerID, uploadID)
		if err != nil {
			return err
		}

		title := input.Title
		if strings.TrimSpace(title) == "" {
			title = upload.Title
		}
		content := input.Content
		if content == "" {
			content = upload.Content
		}

		now := nowMillis()

		existing, err := db.LatestAnalysisFor(ctx, database, uploadID, ownerID)
		switch {
		case err == nil:
			existing.Title = analysis.NormalizeTitle(title)
			existing.Content = content
			existing.Payloads = input.Payloads.Clone()
			existing.CreatedAt = now
			if err := db.UpdateAnalysis(ctx, database, existing); err != nil {
				return err
			}
			out = UpsertOutput{Analysis: *existing, Created: false}
			return nil
		case !errors.Is(err, errors.ErrNotFound):
			return err
		}

		r := &analysis.Result{
			ID:        newID(),
			OwnerID:   ownerID,
			UploadID:  &uploadID,
			Title:     analysis.NormalizeTitle(title),
			Content:   content,
			CreatedAt: now,
			Payloads:  input.Payloads.Clone(),
		}
		if err := insertWithFreshAddress(ctx, database, r); err != nil {
			return err
		}
		out = UpsertOutput{Analysis: *r, Created: true}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}

	if out.Created {
		metrics.AnalysisUpserts.WithLabelValues(metrics.OutcomeCreated).Inc()
	} else {
		metrics.AnalysisUpserts.WithLabelValues(metrics.OutcomeUpdated).Inc()
	}
	return &out, nil
}

// insertWithFreshAddress assigns r.Address and inserts r, regenerating the
// address on collision. Collisions never reach the caller; exhausting the
// attempts is INTERNAL.
func insertWithFreshAddress(ctx context.Context, database *sql.DB, r *analysis.Result) error {
	for attempt := 0; attempt < maxAddressAttempts; attempt++ {
		r.Address = generateAddress(r.OwnerID)
		err := db.InsertAnalysis(ctx, database, r)
		if err == db.ErrAddressTaken {
			continue
		}
		return err
	}
	return errors.NewInternal(fmt.Errorf("no free address after %d attempts", maxAddressAttempts))
}
