package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/errors"
)

// AnalyzeInput contains parameters for the Analyze operation.
type AnalyzeInput struct {
	OwnerID  string
	UploadID string
}

// analysisRequest carries one analyze call from the upload snapshot through
// the analyzer to the store.
type analysisRequest struct {
	upload   *analysis.Upload
	payloads analysis.Payloads
}

// Analyze runs the analyzer over an upload the caller owns and persists the
// result through Upsert. The analyzer runs outside any transaction.
func Analyze(ctx context.Context, database *sql.DB, a analyzer.Analyzer, input AnalyzeInput) (*UpsertOutput, error) {
	ownerID, err := requireID("owner_id", input.OwnerID)
	if err != nil {
		return nil, err
	}
	uploadID, err := requireID("upload_id", input.UploadID)
	if err != nil {
		return nil, err
	}

	upload, err := ownedUpload(ctx, database, ownerID, uploadID)
	if err != nil {
		return nil, err
	}
	req := analysisRequest{upload: upload}

	req.payloads, err = a.Analyze(ctx, req.upload.Content)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("analyzer: %w", err))
	}

	return Upsert(ctx, database, UpsertInput{
		OwnerID:  ownerID,
		UploadID: req.upload.ID,
		Title:    req.upload.Title,
		Content:  req.upload.Content,
		Payloads: req.payloads,
	})
}
