package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/config"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/metrics"
)

// ShareInput contains parameters for the Share operation.
type ShareInput struct {
	AnalysisID   string
	SharerID     string
	RecipientIDs []string
	Permission   string  // view-only (default) or allow-reshare
	Message      *string // optional
}

// ShareManyInput is ShareInput over several analyses at once.
type ShareManyInput struct {
	AnalysisIDs  []string
	SharerID     string
	RecipientIDs []string
	Permission   string
	Message      *string
}

// ShareOutput contains the result of the Share and ShareMany operations.
type ShareOutput struct {
	Shares []analysis.Shared `json:"shares"`
	Count  int               `json:"count"`
}

// Share snapshots one analysis to every recipient.
func Share(ctx context.Context, database *sql.DB, cfg *config.Config, input ShareInput) (*ShareOutput, error) {
	var ids []string
	if input.AnalysisID != "" {
		ids = []string{input.AnalysisID}
	}
	return ShareMany(ctx, database, cfg, ShareManyInput{
		AnalysisIDs:  ids,
		SharerID:     input.SharerID,
		RecipientIDs: input.RecipientIDs,
		Permission:   input.Permission,
		Message:      input.Message,
	})
}

// ShareMany snapshots each analysis to each recipient.
//
// The whole batch is validated before anything is written and all writes
// share one transaction: any VALIDATION, NOT_FOUND or FORBIDDEN leaves the
// database untouched. The sharer must own each analysis or hold an
// allow-reshare snapshot of it. Each (recipient, analysis) pair is upserted
// with a by-value copy of the analysis as it is now; later upserts of the
// analysis do not touch existing snapshots.
func ShareMany(ctx context.Context, database *sql.DB, cfg *config.Config, input ShareManyInput) (*ShareOutput, error) {
	sharerID, err := requireID("sharer_id", input.SharerID)
	if err != nil {
		return nil, err
	}
	analysisIDs, err := cleanIDs("analysis_ids", input.AnalysisIDs)
	if err != nil {
		return nil, err
	}
	recipientIDs, err := cleanIDs("recipient_ids", input.RecipientIDs)
	if err != nil {
		return nil, err
	}
	permission, err := analysis.ParsePermission(input.Permission)
	if err != nil {
		return nil, err
	}
	for _, r := range recipientIDs {
		if r == sharerID {
			return nil, errors.NewValidation("cannot share with yourself")
		}
	}
	message := cleanOptionalString(input.Message)
	requireConnection := cfg != nil && cfg.Share.RequireConnection

	out := &ShareOutput{Shares: []analysis.Shared{}}
	err = db.RunInTx(ctx, database, func(ctx context.Context) error {
		if _, err := db.GetUser(ctx, database, sharerID); err != nil {
			return err
		}

		sources := make([]*analysis.Result, 0, len(analysisIDs))
		for _, id := range analysisIDs {
			src, err := shareableSource(ctx, database, sharerID, id)
			if err != nil {
				return err
			}
			for _, r := range recipientIDs {
				if r == src.OwnerID {
					return errors.NewValidation("cannot share analysis " + src.ID + " with its owner")
				}
			}
			sources = append(sources, src)
		}

		missing, err := db.MissingUsers(ctx, database, recipientIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return errors.NewNotFound("user", missing[0])
		}

		if requireConnection {
			for _, r := range recipientIDs {
				ok, err := db.HasConnection(ctx, database, sharerID, r)
				if err != nil {
					return err
				}
				if !ok {
					return errors.NewForbidden("recipient " + r + " is not in your connections")
				}
			}
		}

		now := nowMillis()
		for _, src := range sources {
			for _, r := range recipientIDs {
				s := analysis.Snapshot(src)
				s.ID = newID()
				s.SharerID = sharerID
				s.RecipientID = r
				s.Permission = permission
				s.Message = message
				s.CreatedAt = now
				s.UpdatedAt = now
				if err := db.UpsertShare(ctx, database, &s); err != nil {
					return err
				}
				out.Shares = append(out.Shares, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}

	out.Count = len(out.Shares)
	metrics.SharesWritten.Add(float64(out.Count))
	return out, nil
}

// shareableSource loads an analysis and checks the sharer may share it:
// as owner, or as holder of an allow-reshare snapshot.
func shareableSource(ctx context.Context, database *sql.DB, sharerID, analysisID string) (*analysis.Result, error) {
	src, err := db.GetAnalysis(ctx, database, analysisID)
	if err != nil {
		return nil, err
	}
	if src.OwnerID == sharerID {
		return src, nil
	}

	held, err := db.GetShareFor(ctx, database, sharerID, analysisID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewForbidden("not allowed to share analysis " + analysisID)
		}
		return nil, err
	}
	if !held.Permission.CanReshare() {
		return nil, errors.NewForbidden("not allowed to share analysis " + analysisID)
	}
	return src, nil
}

// ListSharedInput contains parameters for the ListShared operation.
type ListSharedInput struct {
	RecipientID string
	Limit       int // default: 20, max: 100
	Offset      int
}

// ListSharedOutput contains the result of the ListShared operation.
type ListSharedOutput struct {
	Items      []analysis.Shared `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// ListShared returns snapshots received by the caller, most recently shared first.
func ListShared(ctx context.Context, database *sql.DB, input ListSharedInput) (*ListSharedOutput, error) {
	recipientID, err := requireID("user_id", input.RecipientID)
	if err != nil {
		return nil, err
	}
	limit, offset := page(input.Limit, input.Offset)

	items, total, err := db.ListSharesByRecipient(ctx, database, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListSharedOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
	}, nil
}
