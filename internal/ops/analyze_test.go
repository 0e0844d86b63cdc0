package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/errors"
)

func TestAnalyze_PersistsAnalyzerOutput(t *testing.T) {
	database := setupDB(t)
	owner := mustUser(t, database, "owner")
	up := mustUpload(t, database, owner.ID, "Quarterly report", "Acme Corp had a great quarter.")

	var seen string
	fake := analyzer.Func(func(_ context.Context, text string) (analysis.Payloads, error) {
		seen = text
		return analysis.Payloads{Sentiment: json.RawMessage(`{"sentiment":"Positive"}`)}, nil
	})

	out, err := Analyze(context.Background(), database, fake, AnalyzeInput{OwnerID: owner.ID, UploadID: up.ID})
	require.NoError(t, err)
	require.True(t, out.Created)
	require.Equal(t, up.Content, seen)
	require.Equal(t, "Analysis Result: Quarterly report", out.Analysis.Title)
	require.JSONEq(t, `{"sentiment":"Positive"}`, string(out.Analysis.Sentiment))
}

func TestAnalyze_BasicAnalyzer(t *testing.T) {
	database := setupDB(t)
	owner := mustUser(t, database, "owner")
	up := mustUpload(t, database, owner.ID, "Essay", "The new plan is great. The team loves the new plan.")

	out, err := Analyze(context.Background(), database, analyzer.NewBasic(), AnalyzeInput{OwnerID: owner.ID, UploadID: up.ID})
	require.NoError(t, err)
	require.NotEmpty(t, out.Analysis.Sentiment)
	require.NotEmpty(t, out.Analysis.Ngrams)
	require.NotEmpty(t, out.Analysis.NamedEntities)
	require.NotEmpty(t, out.Analysis.WordFrequencies)
}

func TestAnalyze_AnalyzerErrorIsInternal(t *testing.T) {
	database := setupDB(t)
	owner := mustUser(t, database, "owner")
	up := mustUpload(t, database, owner.ID, "Essay", "text")

	failing := analyzer.Func(func(context.Context, string) (analysis.Payloads, error) {
		return analysis.Payloads{}, fmt.Errorf("model unavailable")
	})

	_, err := Analyze(context.Background(), database, failing, AnalyzeInput{OwnerID: owner.ID, UploadID: up.ID})
	require.True(t, errors.Is(err, errors.ErrInternal), "got %v", err)
	require.Equal(t, 0, countRows(t, database, "analyses"))
}

func TestAnalyze_ForeignUpload(t *testing.T) {
	database := setupDB(t)
	owner := mustUser(t, database, "owner")
	other := mustUser(t, database, "other")
	up := mustUpload(t, database, owner.ID, "Essay", "text")

	called := false
	fake := analyzer.Func(func(context.Context, string) (analysis.Payloads, error) {
		called = true
		return analysis.Payloads{}, nil
	})

	_, err := Analyze(context.Background(), database, fake, AnalyzeInput{OwnerID: other.ID, UploadID: up.ID})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.False(t, called, "analyzer must not run for a foreign upload")
}
