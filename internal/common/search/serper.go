// internal/common/search/serper.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"company-assistant/internal/common/cache"
	commonerrors "company-assistant/internal/common/errors"
	commonhttp "company-assistant/internal/common/http"
	"company-assistant/internal/common/metrics"
)

type SerperConfig struct {
	BaseURL    string
	APIKey     string
	Num        int
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

// Serper calls the Serper Google search API.
type Serper struct {
	config SerperConfig
	http   *commonhttp.Client
	cache  cache.Cache
}

func NewSerper(cfg SerperConfig, c cache.Cache, opts ...commonhttp.Option) *Serper {
	if cfg.Num <= 0 {
		cfg.Num = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts = append([]commonhttp.Option{
		commonhttp.WithMaxRetries(cfg.MaxRetries),
		commonhttp.WithRetryPolicy(commonerrors.RetryBudget),
	}, opts...)
	return &Serper{config: cfg, http: commonhttp.NewClient(cfg.Timeout, opts...), cache: c}
}

func (s *Serper) Name() string { return "serper" }

// Search returns the organic results for query.
func (s *Serper) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(s.config.APIKey) == "" {
		return nil, fmt.Errorf("serper: %w", ErrMissingAPIKey)
	}

	start := time.Now()
	results, err := cache.Fetch(ctx, s.cache, cache.Key("search:serper", query), s.config.CacheTTL, func(ctx context.Context) ([]Result, error) {
		return s.search(ctx, query)
	})
	metrics.ObserveProviderCall(s.Name(), start, err)
	return results, err
}

func (s *Serper) search(ctx context.Context, query string) ([]Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": s.config.Num,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + "/search"
	var response struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	err = s.http.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", s.config.APIKey)
		return req, nil
	}, &response)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	results := make([]Result, 0, maxResults)
	for _, r := range response.Organic {
		if r.Link == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
