// internal/common/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonerrors "company-assistant/internal/common/errors"
	commonhttp "company-assistant/internal/common/http"
	"company-assistant/internal/common/metrics"
)

const providerName = "llm"

var (
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrLLMFailed        = errors.New("LLM_FAILED")
	ErrLLMEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	config Config
	http   *commonhttp.Client
}

func NewClient(cfg Config, opts ...commonhttp.Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts = append([]commonhttp.Option{
		commonhttp.WithMaxRetries(cfg.MaxRetries),
		commonhttp.WithRetryPolicy(commonerrors.RetryBudget),
	}, opts...)
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout, opts...),
	}
}

// WithTemperature returns a client sharing the transport but sampling at t.
func (c *Client) WithTemperature(t float64) *Client {
	cfg := c.config
	cfg.Temperature = t
	return &Client{config: cfg, http: c.http}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends one system and one user message and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, systemPrompt, userPrompt)
	metrics.ObserveProviderCall(providerName, start, err)
	return text, err
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var messages []message
	if systemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMFailed, err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	newReq := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		return req, nil
	}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, newReq, &resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrLLMEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrLLMEmptyResponse
	}
	return text, nil
}
