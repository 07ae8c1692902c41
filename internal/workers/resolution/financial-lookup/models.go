// internal/workers/resolution/financial-lookup/models.go
package financiallookup

import (
	"context"

	"company-assistant/internal/common/finance"
)

const (
	ProviderLabel = "Yahoo Finance"
)

// QuoteProvider fetches current market data for a ticker.
type QuoteProvider interface {
	GetQuote(ctx context.Context, ticker string) (*finance.Quote, error)
}

// quoteData is the market data handed to the summary prompt.
type quoteData struct {
	Price            float64 `json:"price,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	MarketCap        float64 `json:"market_cap,omitempty"`
	PERatio          float64 `json:"pe_ratio,omitempty"`
	DividendYield    float64 `json:"dividend_yield,omitempty"`
	FiftyTwoWeekHigh float64 `json:"52_week_high,omitempty"`
	FiftyTwoWeekLow  float64 `json:"52_week_low,omitempty"`
}

func newQuoteData(q *finance.Quote) quoteData {
	return quoteData{
		Price:            q.Price,
		Currency:         q.Currency,
		MarketCap:        q.MarketCap,
		PERatio:          q.TrailingPE,
		DividendYield:    q.DividendYield,
		FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
	}
}
