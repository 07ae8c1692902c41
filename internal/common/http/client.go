// internal/common/http/client.go
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBackoff = 30 * time.Second

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RequestFunc builds a fresh request for each attempt so bodies can be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// RetryPolicy returns how many retries a failure deserves. The client never
// retries more than its own maxRetries.
type RetryPolicy func(err error) int

type Client struct {
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	retryPolicy RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first retry delay; each retry doubles it.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.baseBackoff = d
	}
}

// WithRetryPolicy narrows the retry budget per failure.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = p
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON executes the request with retries on transport errors, 429 and 5xx,
// and decodes a 200 body into out. Context expiry stops retrying immediately
// and is returned wrapped so callers can test it with errors.Is.
func (c *Client) DoJSON(ctx context.Context, newReq RequestFunc, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("request aborted: %w", ctx.Err())
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		lastErr = c.once(req, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("request aborted: %w", ctx.Err())
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
		var decodeErr *DecodeError
		if errors.As(lastErr, &decodeErr) {
			return lastErr
		}
		if c.retryPolicy != nil && attempt >= c.retryPolicy(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// DecodeError marks a response body that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (c *Client) once(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseBackoff * time.Duration(1<<(attempt-1))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
