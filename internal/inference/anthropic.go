package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/triaged/internal/config"
)

// AnthropicClient implements Completer against the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     config.Secret
	baseURL    string
	model      string
	apiVersion string
	httpClient *http.Client
}

// messagesRequest is the Messages API request body.
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Messages API response body.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a Messages API client.
//
// The API version string is part of the wire contract and must come from
// configuration; there is no default.
func NewAnthropicClient(cfg config.InferenceConfig) (*AnthropicClient, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("API version is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultInferenceBaseURL
	}

	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Complete sends a single-turn prompt and returns the raw model text.
//
// All transport and payload-shape failures are reported as ErrUnavailable so
// callers can fall back without inspecting HTTP details.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey.Value())
	httpReq.Header.Set("Anthropic-Version", c.apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("%w: API error (%d): %s", ErrUnavailable, resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("%w: API error (%d)", ErrUnavailable, resp.StatusCode)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrUnavailable, err)
	}
	if len(msgResp.Content) == 0 || msgResp.Content[0].Text == "" {
		return "", fmt.Errorf("%w: response has no content", ErrUnavailable)
	}

	return msgResp.Content[0].Text, nil
}
