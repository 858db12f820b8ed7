// Package chat proxies mentor questions to an OpenAI-compatible chat
// completion API.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
)

// FallbackReply is shown to users instead of any upstream failure detail.
const FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."

const DefaultSystemPrompt = "You are the Teenskool mentor, a friendly startup coach for teenage founders. " +
	"Answer clearly and briefly, use simple language and suggest a concrete next step."

// Config mirrors the ai.* configuration keys.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	Timeout      time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// errRetryable marks failures worth one more attempt.
var errRetryable = errors.New("retryable")

// SendMessage sends text with the fixed system prompt and returns the reply.
// No conversation history is forwarded.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.InvalidInput("message must not be empty")
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("chat: api key not set: %w", apperr.ErrConfiguration)
	}
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("chat: base url not set: %w", apperr.ErrConfiguration)
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	reply, err := c.do(ctx, body)
	if errors.Is(err, errRetryable) && ctx.Err() == nil {
		c.logger.Warn("chat upstream failed, retrying", zap.Error(err))
		reply, err = c.do(ctx, body)
	}
	if err != nil {
		c.logger.Error("chat upstream failed", zap.Error(err))
		return "", fmt.Errorf("chat: %v: %w", err, apperr.ErrUpstream)
	}
	return reply, nil
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused; the payload is never surfaced
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %v", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty response")
	}
	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("empty reply")
	}
	return reply, nil
}
