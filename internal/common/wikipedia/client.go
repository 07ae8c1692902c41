// internal/common/wikipedia/client.go
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"company-assistant/internal/common/cache"
	commonerrors "company-assistant/internal/common/errors"
	commonhttp "company-assistant/internal/common/http"
	"company-assistant/internal/common/metrics"
)

const providerName = "wikipedia"

var ErrPageNotFound = errors.New("PAGE_NOT_FOUND")

// Page is a page title with its plain-text summary.
type Page struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	URL     string `json:"url"`
}

type Config struct {
	BaseURL    string
	TopK       int
	MaxChars   int
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

type Client struct {
	config Config
	http   *commonhttp.Client
	cache  cache.Cache
}

func NewClient(cfg Config, c cache.Cache, opts ...commonhttp.Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	opts = append([]commonhttp.Option{
		commonhttp.WithMaxRetries(cfg.MaxRetries),
		commonhttp.WithRetryPolicy(commonerrors.RetryBudget),
	}, opts...)
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout, opts...),
		cache:  c,
	}
}

// PageTitle converts free text to the canonical underscore form.
func PageTitle(title string) string {
	return strings.Join(strings.Fields(title), "_")
}

// PageURL is the public article URL, used as answer provenance.
func PageURL(title string) string {
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(PageTitle(title))
}

// Summary returns the lead summary of the page with the given title.
func (c *Client) Summary(ctx context.Context, title string) (*Page, error) {
	start := time.Now()
	page, err := cache.Fetch(ctx, c.cache, cache.Key("wiki:summary", title), c.config.CacheTTL, func(ctx context.Context) (*Page, error) {
		return c.fetchSummary(ctx, title)
	})
	metrics.ObserveProviderCall(providerName, start, err)
	return page, err
}

// Search returns up to TopK pages matching query, each with its summary.
// Pages whose summary cannot be fetched are skipped.
func (c *Client) Search(ctx context.Context, query string) ([]Page, error) {
	start := time.Now()
	titles, err := cache.Fetch(ctx, c.cache, cache.Key("wiki:search", query), c.config.CacheTTL, func(ctx context.Context) ([]string, error) {
		return c.searchTitles(ctx, query)
	})
	metrics.ObserveProviderCall(providerName, start, err)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(titles))
	for _, title := range titles {
		page, err := c.Summary(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			continue
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

func (c *Client) fetchSummary(ctx context.Context, title string) (*Page, error) {
	name := PageTitle(title)
	if name == "" {
		return nil, ErrPageNotFound
	}
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/api/rest_v1/page/summary/" + url.PathEscape(name)

	var resp struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	err := c.http.DoJSON(ctx, c.get(endpoint), &resp)
	if err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrPageNotFound, name)
		}
		return nil, fmt.Errorf("summary %s: %w", name, err)
	}

	extract := strings.TrimSpace(resp.Extract)
	if extract == "" {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, name)
	}
	if resp.Title == "" {
		resp.Title = strings.ReplaceAll(name, "_", " ")
	}
	return &Page{
		Title:   resp.Title,
		Extract: truncate(extract, c.config.MaxChars),
		URL:     PageURL(resp.Title),
	}, nil
}

func (c *Client) searchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", strconv.Itoa(c.config.TopK))
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/w/api.php?" + params.Encode()

	var resp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.http.DoJSON(ctx, c.get(endpoint), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if hit.Title != "" {
			titles = append(titles, hit.Title)
		}
		if len(titles) == c.config.TopK {
			break
		}
	}
	return titles, nil
}

func (c *Client) get(endpoint string) commonhttp.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "company-assistant/1.0")
		return req, nil
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
