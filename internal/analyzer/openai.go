package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hpungsan/lexis/internal/analysis"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	maxTokens          = 2048
)

const systemPrompt = `You are a text analysis service. Reply with a single JSON object with exactly these keys:
"sentiment": {"compound_score": number in [-1,1], "sentiment": "Positive"|"Negative"|"Neutral", "positive_score": number, "negative_score": number, "neutral_score": number},
"ngrams": {"unigrams": {"n": 1, "ngrams": [{"ngram": string, "count": int}]}, "bigrams": {...n=2}, "trigrams": {...n=3}} with at most 10 entries each,
"named_entities": {"entities": [{"text": string, "type": string}], "entity_types": {type: [text]}},
"word_frequencies": {"total_words": int, "unique_words": int, "top_words": [{"word": string, "count": int}]} with at most 20 entries, stopwords excluded.`

// OpenAI delegates analysis to a chat completion model in JSON mode.
type OpenAI struct {
	*openai.Client
	Model string
}

// NewOpenAI creates an analyzer using the public OpenAI endpoint.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{Client: openai.NewClient(apiKey), Model: model}
}

// NewOpenAIWithConfig creates an analyzer with a custom client configuration
// (for example a different BaseURL).
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAI {
	return &OpenAI{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Analyze asks the model for all four payloads and splits its JSON reply.
// Payload contents are passed through without interpretation.
func (o *OpenAI) Analyze(ctx context.Context, text string) (analysis.Payloads, error) {
	model := o.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	// Reasoning models take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := o.CreateChatCompletion(ctx, req)
	if err != nil {
		return analysis.Payloads{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return analysis.Payloads{}, fmt.Errorf("chat completion returned no choices")
	}

	var p analysis.Payloads
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &p); err != nil {
		return analysis.Payloads{}, fmt.Errorf("decode analysis reply: %w", err)
	}
	return p, nil
}
