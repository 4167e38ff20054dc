package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"archdiagram/internal/infrastructure/metrics"
)

var errEmptyCompletion = errors.New("model returned no content")

type GeminiCompleter struct {
	cli   *genai.Client
	model string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCompleter{cli: cli, model: model}, nil
}

func (g *GeminiCompleter) Name() string {
	return g.model
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.IncLLMRequest(g.model)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}, nil)
	if err != nil {
		metrics.IncError("llm", "generate_content")
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		metrics.IncError("llm", "empty_response")
		return "", errEmptyCompletion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		metrics.IncError("llm", "empty_response")
		return "", errEmptyCompletion
	}
	return text, nil
}
