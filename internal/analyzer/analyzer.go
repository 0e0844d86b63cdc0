// Package analyzer turns uploaded text into the opaque analysis payloads
// stored alongside each analysis.
package analyzer

import (
	"context"
	"fmt"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/config"
)

// Analyzer computes sentiment, n-grams, named entities and word frequencies.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Payloads, error)
}

// Func adapts a function to the Analyzer interface.
type Func func(ctx context.Context, text string) (analysis.Payloads, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, text string) (analysis.Payloads, error) {
	return f(ctx, text)
}

// New returns the analyzer selected by cfg.Provider.
func New(cfg config.AnalyzerConfig) (Analyzer, error) {
	switch cfg.Provider {
	case "", "basic":
		return NewBasic(), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
	}
}
