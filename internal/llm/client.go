// Package llm is a minimal client for the Anthropic Messages API, used to
// voice AI civilizations in discussions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-haiku-4-5"
)

// ErrRateLimited is returned once the per-minute call budget is spent.
var ErrRateLimited = errors.New("llm rate limit exceeded")

// Client wraps the Messages API. A nil *Client is valid and disabled.
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient returns nil when apiKey is empty.
func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		url:        apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		maxPerMin:  20,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends one user prompt and returns the first text block of the
// reply.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", errors.New("llm client not configured")
	}
	if err := c.take(); err != nil {
		return "", err
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, respBody)
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", errors.New("empty response")
	}

	c.logger.Debug("llm call", "model", c.model,
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
	)
	return out.Content[0].Text, nil
}

func (c *Client) take() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return fmt.Errorf("%d calls/min: %w", c.maxPerMin, ErrRateLimited)
	}
	c.callCount++
	return nil
}
