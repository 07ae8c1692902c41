// internal/common/finance/client.go
package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"company-assistant/internal/common/cache"
	commonerrors "company-assistant/internal/common/errors"
	commonhttp "company-assistant/internal/common/http"
	"company-assistant/internal/common/metrics"
)

const providerName = "yahoo_finance"

var ErrQuoteNotFound = errors.New("QUOTE_NOT_FOUND")

// Quote is the subset of market data used to answer stock questions.
type Quote struct {
	Symbol           string  `json:"symbol"`
	LongName         string  `json:"longName"`
	Currency         string  `json:"currency"`
	Price            float64 `json:"regularMarketPrice"`
	MarketCap        float64 `json:"marketCap"`
	TrailingPE       float64 `json:"trailingPE"`
	DividendYield    float64 `json:"dividendYield"`
	FiftyTwoWeekHigh float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  float64 `json:"fiftyTwoWeekLow"`
}

type Config struct {
	BaseURL    string
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

// QuoteURL is the public page for a ticker, used as answer provenance.
func QuoteURL(ticker string) string {
	return "https://finance.yahoo.com/quote/" + url.PathEscape(strings.ToUpper(ticker))
}

// GetQuote fetches the current quote for ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrQuoteNotFound
	}

	start := time.Now()
	q, err := cache.Fetch(ctx, c.cache, cache.Key("finance", ticker), c.config.CacheTTL, func(ctx context.Context) (*Quote, error) {
		return c.fetchQuote(ctx, ticker)
	})
	metrics.ObserveProviderCall(providerName, start, err)
	return q, err
}

func (c *Client) fetchQuote(ctx context.Context, ticker string) (*Quote, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/v7/finance/quote?symbols=" + url.QueryEscape(ticker)

	var resp struct {
		QuoteResponse struct {
			Result []Quote `json:"result"`
		} `json:"quoteResponse"`
	}
	err := c.http.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "company-assistant/1.0")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", ticker, err)
	}

	for _, q := range resp.QuoteResponse.Result {
		if strings.EqualFold(q.Symbol, ticker) && q.Price > 0 {
			quote := q
			return &quote, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, ticker)
}
