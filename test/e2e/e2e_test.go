// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-assistant/internal/common/cache"
	"company-assistant/internal/common/finance"
	"company-assistant/internal/common/llm"
	"company-assistant/internal/common/logger"
	"company-assistant/internal/common/search"
	"company-assistant/internal/common/userio"
	"company-assistant/internal/common/wikipedia"

	classifyquery "company-assistant/internal/workers/resolution/classify-query"
	encyclopedialookup "company-assistant/internal/workers/resolution/encyclopedia-lookup"
	evaluateanswer "company-assistant/internal/workers/resolution/evaluate-answer"
	financiallookup "company-assistant/internal/workers/resolution/financial-lookup"
	resolutionloop "company-assistant/internal/workers/resolution/resolution-loop"
	routequery "company-assistant/internal/workers/resolution/route-query"
	verifyanswer "company-assistant/internal/workers/resolution/verify-answer"
)

const (
	startPrompt    = "So, what would you like to look up today?"
	continuePrompt = "Would you like to search something else? (y/n)"
	detailPrompt   = "Hmm, your query didn't yield enough information. Could you provide more details?"
	companyPrompt  = "Which company would you like to know about?"
)

const teslaQuote = `{"quoteResponse":{"result":[{
	"symbol":"TSLA","longName":"Tesla, Inc.","currency":"USD",
	"regularMarketPrice":251.05,"marketCap":800000000000,"trailingPE":70.2,
	"fiftyTwoWeekHigh":299.29,"fiftyTwoWeekLow":138.8}]}}`

// Logger adapters to bridge logger.Logger to stage-specific Logger interfaces
type classifyQueryLoggerAdapter struct {
	logger.Logger
}

func (a *classifyQueryLoggerAdapter) With(fields map[string]interface{}) classifyquery.Logger {
	return &classifyQueryLoggerAdapter{a.Logger.With(fields)}
}

type routeQueryLoggerAdapter struct {
	logger.Logger
}

func (a *routeQueryLoggerAdapter) With(fields map[string]interface{}) routequery.Logger {
	return &routeQueryLoggerAdapter{a.Logger.With(fields)}
}

type financialLookupLoggerAdapter struct {
	logger.Logger
}

func (a *financialLookupLoggerAdapter) With(fields map[string]interface{}) financiallookup.Logger {
	return &financialLookupLoggerAdapter{a.Logger.With(fields)}
}

type encyclopediaLookupLoggerAdapter struct {
	logger.Logger
}

func (a *encyclopediaLookupLoggerAdapter) With(fields map[string]interface{}) encyclopedialookup.Logger {
	return &encyclopediaLookupLoggerAdapter{a.Logger.With(fields)}
}

type evaluateAnswerLoggerAdapter struct {
	logger.Logger
}

func (a *evaluateAnswerLoggerAdapter) With(fields map[string]interface{}) evaluateanswer.Logger {
	return &evaluateAnswerLoggerAdapter{a.Logger.With(fields)}
}

type verifyAnswerLoggerAdapter struct {
	logger.Logger
}

func (a *verifyAnswerLoggerAdapter) With(fields map[string]interface{}) verifyanswer.Logger {
	return &verifyAnswerLoggerAdapter{a.Logger.With(fields)}
}

type resolutionLoopLoggerAdapter struct {
	logger.Logger
}

func (a *resolutionLoopLoggerAdapter) With(fields map[string]interface{}) resolutionloop.Logger {
	return &resolutionLoopLoggerAdapter{a.Logger.With(fields)}
}

// env is one assistant wired against fake providers.
type env struct {
	llm     *fakeLLM
	finance *fakeFinance
	wiki    *fakeWiki
	search  *fakeSearch
	ui      *userio.Scripted
	loop    *resolutionloop.Handler
}

type envOptions struct {
	maxAttempts       int
	maxClarifications int
}

func newEnv(t *testing.T, fl *fakeLLM, ff *fakeFinance, fw *fakeWiki, fs *fakeSearch, opts envOptions, answers ...string) *env {
	t.Helper()
	if opts.maxClarifications == 0 {
		opts.maxClarifications = 3
	}

	log := logger.NewTestLogger(t)
	store := cache.Noop{}
	now := func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }

	model := llm.NewClient(llm.Config{BaseURL: fl.start(t).URL, APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: 5 * time.Second})
	quotes := finance.NewClient(finance.Config{BaseURL: ff.start(t).URL, Timeout: 5 * time.Second}, store)
	wiki := wikipedia.NewClient(wikipedia.Config{BaseURL: fw.start(t).URL, TopK: 3, Timeout: 5 * time.Second}, store)
	tavily := search.NewTavily(search.TavilyConfig{BaseURL: fs.startTavily(t).URL, APIKey: "tvly-test", Timeout: 5 * time.Second}, store)
	serper := search.NewSerper(search.SerperConfig{BaseURL: fs.startSerper(t).URL, APIKey: "serper-test", Timeout: 5 * time.Second}, store)

	ui := userio.NewScripted(answers...)

	classifier := classifyquery.NewHandler(&classifyquery.Config{
		Timeout:           5 * time.Second,
		MaxClarifications: opts.maxClarifications,
		Now:               now,
	}, model, ui, &classifyQueryLoggerAdapter{log})
	financial := financiallookup.NewHandler(&financiallookup.Config{Timeout: 5 * time.Second, Now: now}, model, quotes, &financialLookupLoggerAdapter{log})
	encyclopedia := encyclopedialookup.NewHandler(&encyclopedialookup.Config{Timeout: 5 * time.Second}, model, wiki, &encyclopediaLookupLoggerAdapter{log})
	router := routequery.NewHandler(&routequery.Config{Timeout: 10 * time.Second}, financial, encyclopedia, &routeQueryLoggerAdapter{log})
	evaluator := evaluateanswer.NewHandler(&evaluateanswer.Config{Timeout: 5 * time.Second}, model.WithTemperature(0), &evaluateAnswerLoggerAdapter{log})
	verifier := verifyanswer.NewHandler(&verifyanswer.Config{
		Timeout:       10 * time.Second,
		SearchTimeout: 5 * time.Second,
		MaxSources:    5,
		Policy:        verifyanswer.PolicyDrop,
	}, model, tavily, serper, &verifyAnswerLoggerAdapter{log})

	loop, err := resolutionloop.NewHandler(&resolutionloop.Config{MaxAttempts: opts.maxAttempts}, resolutionloop.Stages{
		Classifier: classifier,
		Router:     router,
		Evaluator:  evaluator,
		Verifier:   verifier,
	}, ui, nil, &resolutionLoopLoggerAdapter{log})
	require.NoError(t, err)

	return &env{llm: fl, finance: ff, wiki: fw, search: fs, ui: ui, loop: loop}
}

func (e *env) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, e.loop.Run(ctx))
	assert.Equal(t, 0, e.ui.Remaining(), "every scripted answer should be consumed")
	assert.Equal(t, []string{resolutionloop.GoodbyeMessage}, e.ui.Notified)
}

func corroboratingSearch() *fakeSearch {
	return &fakeSearch{results: []hit{
		{Title: "Company profile", URL: "https://www.reuters.com/companies/profile", Snippet: "Company profile and key facts."},
		{Title: "Overview", URL: "https://en.wikipedia.org/wiki/Overview", Snippet: "An encyclopedia overview."},
		{Title: "Markets", URL: "https://www.businessinsider.com/markets", Snippet: "Market coverage."},
	}}
}

// ==========================
// General questions
// ==========================

func TestE2E_GeneralQuestionIsVerified(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"Tell me about Microsoft": `{"company": "Microsoft", "intent": "general information", "details": "", "time_reference": ""}`,
		},
		answers: map[string]string{
			"Microsoft history and products overview": "Microsoft is an American technology company best known for Windows and Office.",
		},
	}
	fw := &fakeWiki{
		pages: map[string]string{"Microsoft": "Microsoft Corporation is an American multinational technology company."},
		hits:  []string{"Microsoft"},
	}
	e := newEnv(t, fl, &fakeFinance{}, fw, corroboratingSearch(), envOptions{maxAttempts: 3},
		"Tell me about Microsoft", "n")
	e.run(t)

	require.Len(t, e.ui.Shown, 1)
	shown := e.ui.Shown[0]
	assert.Contains(t, shown.Text, "Microsoft")
	require.NotEmpty(t, shown.Sources)
	assert.Equal(t, "Wikipedia", shown.Sources[0].Label)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Microsoft", shown.Sources[0].URL)

	assert.Equal(t, []string{"Microsoft history and products overview"}, fw.queries())
	assert.Equal(t, 1, fl.count(callEvaluate))
	assert.Equal(t, 1, fl.count(callValidate))
	assert.Equal(t, 0, fl.count(callSynthesize))
	assert.Equal(t, 0, fl.count(callTicker))
	assert.Equal(t, []string{startPrompt, continuePrompt}, e.ui.Prompts)
}

// ==========================
// Financial questions
// ==========================

func TestE2E_StockQuestionReferencesTicker(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"What's Tesla's stock price?": "```json\n" + `{"company": "Tesla, Inc.", "intent": "stock", "details": "price", "time_reference": ""}` + "\n```",
		},
		tickers:   map[string]string{"Tesla, Inc.": "TSLA"},
		summaries: map[string]string{"TSLA": "As of March 14, 2025, Tesla, Inc. (TSLA) trades at 251.05 USD."},
	}
	ff := &fakeFinance{quotes: map[string]string{"TSLA": teslaQuote}}
	e := newEnv(t, fl, ff, &fakeWiki{}, corroboratingSearch(), envOptions{maxAttempts: 3},
		"What's Tesla's stock price?", "n")
	e.run(t)

	require.Len(t, e.ui.Shown, 1)
	shown := e.ui.Shown[0]
	assert.Contains(t, shown.Text, "TSLA")
	require.NotEmpty(t, shown.Sources)
	assert.Equal(t, "Yahoo Finance", shown.Sources[0].Label)
	assert.Equal(t, "https://finance.yahoo.com/quote/TSLA", shown.Sources[0].URL)

	assert.Equal(t, 1, ff.count())
	assert.Empty(t, e.wiki.queries(), "financial questions never reach the encyclopedia")
	require.Len(t, fl.userPrompts(callSummary), 1)
	assert.Contains(t, fl.userPrompts(callSummary)[0], "User Question: Tesla, Inc. stock price")
}

func TestE2E_CompanyWithoutTickerSkipsEvaluation(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"Tell me about OpenAI's stock": `{"company": "OpenAI", "intent": "stock", "details": "", "time_reference": ""}`,
		},
		tickers:      map[string]string{"OpenAI": "OpenAI is a privately held company and does not trade publicly."},
		explanations: map[string]string{"OpenAI": "OpenAI is privately held, so it has no public stock ticker."},
	}
	ff := &fakeFinance{}
	fs := corroboratingSearch()
	e := newEnv(t, fl, ff, &fakeWiki{}, fs, envOptions{maxAttempts: 3},
		"Tell me about OpenAI's stock", "n")
	e.run(t)

	require.Len(t, e.ui.Shown, 1)
	assert.Equal(t, "OpenAI is privately held, so it has no public stock ticker.", e.ui.Shown[0].Text)
	assert.Empty(t, e.ui.Shown[0].Sources)
	assert.Equal(t, []string{startPrompt, continuePrompt}, e.ui.Prompts)

	assert.Equal(t, 0, fl.count(callEvaluate))
	assert.Equal(t, 0, fl.count(callValidate))
	assert.Equal(t, 0, fl.count(callSynthesize))
	assert.Equal(t, 0, ff.count())
	assert.Equal(t, 0, fs.count())
}

// ==========================
// Escalation
// ==========================

func TestE2E_IrrelevantCandidateEscalatesWithDetail(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"Tell me about Acme Corp's history":                     `{"company": "Acme Corp", "intent": "history", "details": "", "time_reference": ""}`,
			"Acme Corp history overview founded in 1920 in Arizona": `{"company": "Acme Corp", "intent": "history", "details": "founded Arizona", "time_reference": "1920"}`,
		},
		answers: map[string]string{
			"Acme Corp history overview":     "Acme Corp sells anvils.",
			"Acme Corp founded Arizona 1920": "Acme Corp was founded in 1920 in Arizona.",
		},
		ratings: map[string]string{
			"Acme Corp sells anvils.": "irrelevant",
		},
	}
	fw := &fakeWiki{
		pages: map[string]string{"Acme Corp": "Acme Corp is a company that sells anvils. It was founded in 1920 in Arizona."},
		hits:  []string{"Acme Corp"},
	}
	fs := corroboratingSearch()
	e := newEnv(t, fl, &fakeFinance{}, fw, fs, envOptions{maxAttempts: 3},
		"Tell me about Acme Corp's history", "founded in 1920 in Arizona", "n")
	e.run(t)

	assert.Equal(t, []string{startPrompt, detailPrompt, continuePrompt}, e.ui.Prompts)
	assert.Contains(t, fl.userPrompts(callExtraction), "Query: Acme Corp history overview founded in 1920 in Arizona")
	assert.Equal(t, []string{"Acme Corp history overview", "Acme Corp founded Arizona 1920"}, fw.queries())

	// The first candidate is rejected, then the query alone fails synthesis.
	require.Len(t, fl.userPrompts(callSynthesize), 1)
	assert.Contains(t, fl.userPrompts(callSynthesize)[0], "User Query: Acme Corp history overview")
	assert.Equal(t, 1, fl.count(callAmbiguity), "retries skip the ambiguity check")

	require.Len(t, e.ui.Shown, 1)
	assert.Equal(t, "Acme Corp was founded in 1920 in Arizona.", e.ui.Shown[0].Text)
	require.NotEmpty(t, e.ui.Shown[0].Sources)
	assert.Equal(t, "Wikipedia", e.ui.Shown[0].Sources[0].Label)
}

func TestE2E_EscalationLimitIsTerminal(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"Tell me about Initech": `{"company": "Initech", "intent": "general information", "details": "", "time_reference": ""}`,
		},
	}
	e := newEnv(t, fl, &fakeFinance{}, &fakeWiki{}, corroboratingSearch(), envOptions{maxAttempts: 1},
		"Tell me about Initech", "the software company", "n")
	e.run(t)

	assert.Equal(t, []string{startPrompt, detailPrompt, continuePrompt}, e.ui.Prompts)
	require.Len(t, e.ui.Shown, 1)
	assert.Contains(t, e.ui.Shown[0].Text, "unable to resolve")
	assert.Equal(t, 2, fl.count(callSynthesize))
}

// ==========================
// Classification
// ==========================

func TestE2E_MissingCompanyNeverRoutes(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"What's the stock price?": `{"company": "Unknown", "intent": "stock", "details": "price", "time_reference": ""}`,
		},
		refinements: map[string]string{
			"any of them": "What's the stock price of any of them?",
		},
	}
	ff := &fakeFinance{}
	fs := corroboratingSearch()
	e := newEnv(t, fl, ff, &fakeWiki{}, fs, envOptions{maxAttempts: 3, maxClarifications: 1},
		"What's the stock price?", "any of them", "n")
	e.run(t)

	assert.Equal(t, []string{startPrompt, companyPrompt, continuePrompt}, e.ui.Prompts)
	require.Len(t, e.ui.Shown, 1)
	assert.Contains(t, e.ui.Shown[0].Text, "which company")
	assert.Contains(t, fl.userPrompts(callExtraction), "Query: What's the stock price of any of them?")

	assert.Equal(t, 0, fl.count(callTicker))
	assert.Equal(t, 0, fl.count(callAnswer))
	assert.Equal(t, 0, ff.count())
	assert.Equal(t, 0, fs.count())
}

func TestE2E_EmptyClarificationEndsSession(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"stock price": `{"company": "Unknown", "intent": "stock", "details": "price", "time_reference": ""}`,
		},
	}
	e := newEnv(t, fl, &fakeFinance{}, &fakeWiki{}, corroboratingSearch(), envOptions{maxAttempts: 3},
		"stock price", "  ")
	e.run(t)

	assert.Equal(t, []string{startPrompt, companyPrompt}, e.ui.Prompts)
	assert.Empty(t, e.ui.Shown)
}

// ==========================
// Sessions
// ==========================

func TestE2E_SessionAnswersSeveralQuestions(t *testing.T) {
	fl := &fakeLLM{
		extractions: map[string]string{
			"Tell me about Microsoft":     `{"company": "Microsoft", "intent": "general information", "details": "", "time_reference": ""}`,
			"What's Tesla's stock price?": `{"company": "Tesla, Inc.", "intent": "stock", "details": "price", "time_reference": ""}`,
		},
		answers: map[string]string{
			"Microsoft history and products overview": "Microsoft is an American technology company best known for Windows and Office.",
		},
		tickers: map[string]string{"Tesla, Inc.": "TSLA"},
	}
	fw := &fakeWiki{
		pages: map[string]string{"Microsoft": "Microsoft Corporation is an American multinational technology company."},
		hits:  []string{"Microsoft"},
	}
	ff := &fakeFinance{quotes: map[string]string{"TSLA": teslaQuote}}
	e := newEnv(t, fl, ff, fw, corroboratingSearch(), envOptions{maxAttempts: 3},
		"Tell me about Microsoft", "y", "What's Tesla's stock price?", "no")
	e.run(t)

	assert.Equal(t, []string{startPrompt, continuePrompt, startPrompt, continuePrompt}, e.ui.Prompts)
	require.Len(t, e.ui.Shown, 2)
	assert.Contains(t, e.ui.Shown[0].Text, "Microsoft")
	// Without a model summary the quote is rendered directly.
	assert.Equal(t, "As of March 14, 2025, Tesla, Inc. (TSLA) trades at 251.05 USD, has a market cap of $800.00B, a trailing P/E of 70.20, a 52-week range of 138.80 to 299.29.", e.ui.Shown[1].Text)
}

func TestE2E_InputClosedSaysGoodbye(t *testing.T) {
	e := newEnv(t, &fakeLLM{}, &fakeFinance{}, &fakeWiki{}, corroboratingSearch(), envOptions{})
	e.run(t)
	assert.Equal(t, []string{startPrompt}, e.ui.Prompts)
}
