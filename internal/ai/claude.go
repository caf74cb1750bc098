package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultClaudeModel = "claude-sonnet-4-20250514"
	anthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
)

type claudeProvider struct {
	apiKey string
	client *http.Client
	model  string
}

func newClaude(apiKey, model string) *claudeProvider {
	if model == "" {
		model = defaultClaudeModel
	}
	return &claudeProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		model:  model,
	}
}

func (p *claudeProvider) Name() string  { return "claude" }
func (p *claudeProvider) Model() string { return p.model }

func (p *claudeProvider) Complete(ctx context.Context, turns []Turn) (Reply, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	messages := make([]message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, message{Role: t.Role, Content: t.Content})
	}

	body := map[string]any{
		"model":       p.model,
		"messages":    messages,
		"max_tokens":  4000,
		"temperature": 0,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("calling Claude: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("Claude API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var claudeResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &claudeResp); err != nil {
		return Reply{}, fmt.Errorf("decoding Claude response: %w", err)
	}
	if claudeResp.Error.Message != "" {
		return Reply{}, fmt.Errorf("Claude API error: %s", claudeResp.Error.Message)
	}
	if len(claudeResp.Content) == 0 {
		return Reply{}, fmt.Errorf("empty response from Claude")
	}
	return Reply{
		Text:   claudeResp.Content[0].Text,
		Tokens: claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
	}, nil
}
