package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"archdiagram/internal/infrastructure/metrics"
)

// ChatCompletionsCompleter talks to any OpenAI-compatible chat completions endpoint.
type ChatCompletionsCompleter struct {
	apiKey      string
	baseURL     string
	model       string
	client      *http.Client
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func NewChatCompletionsCompleter(apiKey, baseURL, model string, maxTokens int, timeout time.Duration, logger *slog.Logger) *ChatCompletionsCompleter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ChatCompletionsCompleter{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		client:      &http.Client{Timeout: timeout},
		maxTokens:   maxTokens,
		temperature: 0.2,
		logger:      logger,
	}
}

func (c *ChatCompletionsCompleter) Name() string {
	return c.model
}

func (c *ChatCompletionsCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.IncLLMRequest(c.model)

	request := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
	}
	if c.maxTokens > 0 {
		request["max_tokens"] = c.maxTokens
	}

	response, err := c.makeRequest(ctx, request)
	if err != nil {
		metrics.IncError("llm", "make_request")
		return "", fmt.Errorf("failed to make chat completions request: %w", err)
	}

	content, err := parseChoiceContent(response)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		return "", fmt.Errorf("failed to parse chat completions response: %w", err)
	}

	return content, nil
}

func (c *ChatCompletionsCompleter) makeRequest(ctx context.Context, request map[string]interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		metrics.IncError("llm", "create_request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("close body failed", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, fmt.Errorf("chat completions api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		metrics.IncError("llm", "decode_response")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response, nil
}

func parseChoiceContent(response map[string]interface{}) (string, error) {
	choices, ok := response["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", fmt.Errorf("invalid response format: no choices")
	}

	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format: invalid choice")
	}

	message, ok := choice["message"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format: no message")
	}

	content, ok := message["content"].(string)
	if !ok {
		return "", fmt.Errorf("invalid response format: no content")
	}

	return strings.TrimSpace(content), nil
}
