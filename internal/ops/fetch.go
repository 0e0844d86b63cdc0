package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/db"
	"github.com/hpungsan/lexis/internal/errors"
)

// Fetch kinds.
const (
	KindAnalysis = "analysis"
	KindShared   = "shared"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	CallerID string
	Address  string
}

// FetchOutput contains the result of the Fetch operation. Exactly one of
// Analysis and Shared is set, as indicated by Kind.
type FetchOutput struct {
	Kind     string           `json:"kind"`
	Analysis *analysis.Result `json:"analysis,omitempty"`
	Shared   *analysis.Shared `json:"shared,omitempty"`
}

// Title returns the title of whichever artifact was fetched.
func (f *FetchOutput) Title() string {
	if f.Shared != nil {
		return f.Shared.Title
	}
	return f.Analysis.Title
}

// Content returns the analyzed text of whichever artifact was fetched.
func (f *FetchOutput) Content() string {
	if f.Shared != nil {
		return f.Shared.Content
	}
	return f.Analysis.Content
}

// Payloads returns the payloads of whichever artifact was fetched.
func (f *FetchOutput) Payloads() analysis.Payloads {
	if f.Shared != nil {
		return f.Shared.Payloads
	}
	return f.Analysis.Payloads
}

// Fetch resolves an address for the caller. The owner sees the live
// analysis; a recipient sees their own snapshot; everyone else gets NOT_FOUND.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	callerID, err := requireID("user_id", input.CallerID)
	if err != nil {
		return nil, err
	}
	address, err := requireID("address", input.Address)
	if err != nil {
		return nil, err
	}

	r, err := db.GetAnalysisByAddress(ctx, database, address)
	switch {
	case err == nil && r.OwnerID == callerID:
		return &FetchOutput{Kind: KindAnalysis, Analysis: r}, nil
	case err != nil && !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	s, err := db.GetShareByAddress(ctx, database, callerID, address)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNotFound("analysis", address)
		}
		return nil, err
	}
	return &FetchOutput{Kind: KindShared, Shared: s}, nil
}

// GetAnalysis retrieves an analysis by id for its owner.
func GetAnalysis(ctx context.Context, database *sql.DB, callerID, id string) (*analysis.Result, error) {
	callerID, err := requireID("user_id", callerID)
	if err != nil {
		return nil, err
	}
	id, err = requireID("analysis_id", id)
	if err != nil {
		return nil, err
	}
	r, err := db.GetAnalysis(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != callerID {
		return nil, errors.NewNotFound("analysis", id)
	}
	return r, nil
}

// ListAnalysesInput contains parameters for the ListAnalyses operation.
type ListAnalysesInput struct {
	OwnerID string
	Limit   int // default: 20, max: 100
	Offset  int
}

// ListAnalysesOutput contains the result of the ListAnalyses operation.
type ListAnalysesOutput struct {
	Items      []analysis.Result `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// ListAnalyses returns the owner's analyses, newest first.
func ListAnalyses(ctx context.Context, database *sql.DB, input ListAnalysesInput) (*ListAnalysesOutput, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	limit, offset := page(input.Limit, input.Offset)

	items, total, err := db.ListAnalyses(ctx, database, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListAnalysesOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
	}, nil
}
