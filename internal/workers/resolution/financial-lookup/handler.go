// internal/workers/resolution/financial-lookup/handler.go
package financiallookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/common/finance"
	"company-assistant/internal/models"
)

const (
	TaskType = "financial-lookup"
)

var (
	ErrTickerLookupFailed = errors.New("TICKER_LOOKUP_FAILED")
	ErrInvalidQuery       = errors.New("INVALID_QUERY")
)

const tickerSystemPrompt = `You are an assistant that maps company names to their corresponding stock ticker symbols.
ONLY respond with the stock ticker (e.g. 'Apple' -> 'AAPL').
If the company is not publicly traded, explain why in one sentence instead.`

const explanationSystemPrompt = `You are a financial assistant. The user asked about the stock of a company that has no publicly traded ticker.
In one or two sentences, explain the most likely reason (e.g., it is privately held, a subsidiary, or a non-profit).
Start your answer with the company name.`

var (
	tickerPattern  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)
	trailingSource = regexp.MustCompile(`\s*\(Source:[^)]*\)\.?\s*$`)
)

// Placeholder replies that fit the ticker shape but name no listing.
var notTickers = map[string]bool{
	"NONE":    true,
	"NULL":    true,
	"NIL":     true,
	"N/A":     true,
	"NA":      true,
	"UNKNOWN": true,
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Handler struct {
	config *Config
	llm    LLM
	quotes QuoteProvider
	logger Logger
	errors *commonerrors.ErrorHandler
}

func NewHandler(config *Config, llm LLM, quotes QuoteProvider, log Logger) *Handler {
	if config.MaxTickerLength <= 0 {
		config.MaxTickerLength = 5
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		llm:    llm,
		quotes: quotes,
		logger: logger,
		errors: commonerrors.NewErrorHandler(logger),
	}
}

func (h *Handler) execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error) {
	if query == nil || !query.HasCompany() {
		return nil, ErrInvalidQuery
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	company := strings.TrimSpace(query.CompanyName)
	reply, err := h.llm.Complete(ctx, tickerSystemPrompt, fmt.Sprintf("Company Name: %s\nWhat is the stock ticker?", company))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTickerLookupFailed, err)
	}

	ticker, ok := h.parseTicker(reply)
	if !ok {
		h.logger.Info("no ticker for company", map[string]interface{}{
			"company": company,
		})
		return &models.CandidateAnswer{
			Text:       h.explainNoTicker(ctx, company),
			SourceKind: models.SourceKindFinancial,
			Found:      false,
		}, nil
	}

	quote, err := h.quotes.GetQuote(ctx, ticker)
	if err != nil {
		h.errors.Handle(ProviderLabel, err)
		empty := models.EmptyCandidate(models.SourceKindFinancial)
		empty.Ticker = ticker
		return &empty, nil
	}

	text := h.summarize(ctx, query, ticker, quote)

	h.logger.Info("financial lookup completed", map[string]interface{}{
		"company": company,
		"ticker":  ticker,
	})

	return &models.CandidateAnswer{
		Text:       text,
		SourceKind: models.SourceKindFinancial,
		Ticker:     ticker,
		Found:      true,
		Provenance: &models.Source{Label: ProviderLabel, URL: finance.QuoteURL(ticker)},
	}, nil
}

// parseTicker reads the model reply as a ticker symbol. Replies longer than
// MaxTickerLength are explanations, not symbols.
func (h *Handler) parseTicker(reply string) (string, bool) {
	t := strings.TrimSpace(reply)
	t = strings.Trim(t, "'\"`")
	t = strings.TrimPrefix(t, "$")
	t = strings.TrimSuffix(t, ".")
	t = strings.ToUpper(strings.TrimSpace(t))

	if t == "" || notTickers[t] || len(t) > h.config.MaxTickerLength || !tickerPattern.MatchString(t) {
		return "", false
	}
	return t, true
}

func (h *Handler) explainNoTicker(ctx context.Context, company string) string {
	text, err := h.llm.Complete(ctx, explanationSystemPrompt, fmt.Sprintf("Company Name: %s", company))
	if err != nil || strings.TrimSpace(text) == "" {
		return fmt.Sprintf("%s does not appear to have a publicly traded stock ticker.", company)
	}
	return strings.TrimSpace(text)
}

func (h *Handler) summarize(ctx context.Context, query *models.StructuredQuery, ticker string, quote *finance.Quote) string {
	today := h.config.Now().Format("January 2, 2006")
	data, _ := json.Marshal(newQuoteData(quote))

	var system []string
	system = append(system, "You are a financial assistant that analyzes stock data and provides insights.")
	system = append(system, "Provide a succinct, 1-2 sentence summary that ONLY directly answers the user question.")
	system = append(system, fmt.Sprintf("Start your response 'As of %s', include the company's name and the ticker in parentheses (e.g., Tesla, Inc. (TSLA) ...).", today))
	system = append(system, "Avoid excessive details and focus only on valuable information. Do not list sources.")

	var parts []string
	parts = append(parts, fmt.Sprintf("Stock Symbol: %s", ticker))
	parts = append(parts, fmt.Sprintf("Current Data: %s", data))
	parts = append(parts, fmt.Sprintf("User Question: %s", query.SearchText()))

	text, err := h.llm.Complete(ctx, strings.Join(system, "\n"), strings.Join(parts, "\n"))
	text = strings.TrimSpace(trailingSource.ReplaceAllString(text, ""))
	if err != nil || text == "" {
		if err != nil {
			h.logger.Warn("summary call failed, using quote summary", map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			})
		}
		return quoteSummary(today, query.CompanyName, ticker, quote)
	}
	return text
}

// quoteSummary renders the quote without the language model.
func quoteSummary(today, company, ticker string, q *finance.Quote) string {
	name := q.LongName
	if name == "" {
		name = company
	}
	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}

	var facts []string
	facts = append(facts, fmt.Sprintf("trades at %.2f %s", q.Price, currency))
	if q.MarketCap > 0 {
		facts = append(facts, fmt.Sprintf("has a market cap of %s", humanize(q.MarketCap)))
	}
	if q.TrailingPE > 0 {
		facts = append(facts, fmt.Sprintf("a trailing P/E of %.2f", q.TrailingPE))
	}
	if q.FiftyTwoWeekLow > 0 && q.FiftyTwoWeekHigh > 0 {
		facts = append(facts, fmt.Sprintf("a 52-week range of %.2f to %.2f", q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh))
	}

	return fmt.Sprintf("As of %s, %s (%s) %s.", today, name, ticker, strings.Join(facts, ", "))
}

func humanize(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	}
	return fmt.Sprintf("$%.0f", v)
}

// Execute resolves the company's ticker and summarizes its current quote.
// A company without a ticker yields Found=false with an explanation.
func (h *Handler) Execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error) {
	return h.execute(ctx, query)
}
