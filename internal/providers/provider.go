// Package providers wraps OpenAI-compatible chat completion endpoints using
// plain net/http. The default gateway is OpenRouter, which fronts the models
// the team roster names; any compatible endpoint works via config.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is the OpenRouter endpoint the original deployment used.
const DefaultAPIBase = "https://openrouter.ai/api/v1"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// ChatRequest is a chat completion call.
type ChatRequest struct {
	Messages    []Message
	Model       string // empty = provider default
	MaxTokens   int
	Temperature float64
}

// LLMProvider is the narrow surface the pipeline needs; tests substitute a
// canned implementation.
type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	DefaultModel() string
}

// Provider calls an OpenAI-compatible /chat/completions endpoint.
type Provider struct {
	APIKey       string
	APIBase      string
	Model        string
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

// NewProvider creates a Provider. Empty apiBase uses OpenRouter; empty model
// falls back to the original deployment's default.
func NewProvider(apiKey, apiBase, model string) *Provider {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	return &Provider{
		APIKey:  apiKey,
		APIBase: apiBase,
		Model:   model,
		ExtraHeaders: map[string]string{
			"HTTP-Referer": "https://github.com/dayuer/starfish-go",
			"X-Title":      "Starfish AI Agent",
		},
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// DefaultModel satisfies LLMProvider.
func (p *Provider) DefaultModel() string { return p.Model }

// Chat sends a chat completion request and returns the assistant text.
func (p *Provider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens < 1 {
		maxTokens = 500
	}

	body := map[string]any{
		"model":       model,
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	for k, v := range p.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d: %.200s", resp.StatusCode, data)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("chat completion: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

var _ LLMProvider = (*Provider)(nil)
