// internal/common/search/tavily.go
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

type TavilyConfig struct {
	BaseURL     string
	APIKey      string
	SearchDepth string
	MaxResults  int
	Timeout     time.Duration
	MaxRetries  int
	CacheTTL    time.Duration
}

// Tavily calls the Tavily search API.
type Tavily struct {
	config TavilyConfig
	http   *commonhttp.Client
	cache  cache.Cache
}

func NewTavily(cfg TavilyConfig, c cache.Cache, opts ...commonhttp.Option) *Tavily {
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "basic"
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > maxResults {
		cfg.MaxResults = maxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts = append([]commonhttp.Option{
		commonhttp.WithMaxRetries(cfg.MaxRetries),
		commonhttp.WithRetryPolicy(commonerrors.RetryBudget),
	}, opts...)
	return &Tavily{config: cfg, http: commonhttp.NewClient(cfg.Timeout, opts...), cache: c}
}

func (t *Tavily) Name() string { return "tavily" }

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(t.config.APIKey) == "" {
		return nil, fmt.Errorf("tavily: %w", ErrMissingAPIKey)
	}

	start := time.Now()
	results, err := cache.Fetch(ctx, t.cache, cache.Key("search:tavily", query), t.config.CacheTTL, func(ctx context.Context) ([]Result, error) {
		return t.search(ctx, query)
	})
	metrics.ObserveProviderCall(t.Name(), start, err)
	return results, err
}

func (t *Tavily) search(ctx context.Context, query string) ([]Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":        query,
		"api_key":      t.config.APIKey,
		"search_depth": t.config.SearchDepth,
		"max_results":  t.config.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(t.config.BaseURL, "/") + "/search"
	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	err = t.http.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &response)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= t.config.MaxResults {
			break
		}
	}
	return results, nil
}
