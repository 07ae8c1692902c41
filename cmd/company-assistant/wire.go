// cmd/company-assistant/wire.go
package main

import (
	"fmt"
	"time"

	"company-assistant/internal/common/cache"
	"company-assistant/internal/common/config"
	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/common/finance"
	"company-assistant/internal/common/llm"
	"company-assistant/internal/common/logger"
	"company-assistant/internal/common/observability"
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

// buildLoop constructs every provider client and stage from cfg.
func buildLoop(cfg *config.Config, store cache.Cache, ui userio.UserIO, obs *observability.Observability, log logger.Logger) (*resolutionloop.Handler, error) {
	stages := make(map[string]config.WorkerConfig)
	for _, stage := range []string{
		config.StageClassifyQuery,
		config.StageRouteQuery,
		config.StageFinancialLookup,
		config.StageEncyclopediaLookup,
		config.StageEvaluateAnswer,
		config.StageVerifyAnswer,
		config.StageResolutionLoop,
	} {
		wc := config.GetWorkerConfig(cfg, stage)
		if !wc.Enabled {
			return nil, commonerrors.NewConfigurationInvalidError(fmt.Sprintf("workers.%s.enabled is false but every resolution stage is required", stage))
		}
		stages[stage] = wc
	}
	timeout := func(stage string) time.Duration {
		return config.GetDuration(stages[stage].Timeout)
	}
	cacheTTL := config.GetDuration(cfg.Cache.TTL)

	// --- Provider clients ---
	model := llm.NewClient(llm.Config{
		BaseURL:     cfg.APIs.LLM.BaseURL,
		APIKey:      cfg.APIs.LLM.APIKey,
		Model:       cfg.APIs.LLM.Model,
		Temperature: cfg.APIs.LLM.Temperature,
		Timeout:     config.GetDuration(cfg.APIs.LLM.Timeout),
		MaxRetries:  stages[config.StageClassifyQuery].MaxRetries,
	})
	grader := model.WithTemperature(0)

	quotes := finance.NewClient(finance.Config{
		BaseURL:    cfg.APIs.Finance.BaseURL,
		Timeout:    config.GetDuration(cfg.APIs.Finance.Timeout),
		MaxRetries: stages[config.StageFinancialLookup].MaxRetries,
		CacheTTL:   cacheTTL,
	}, store)

	wiki := wikipedia.NewClient(wikipedia.Config{
		BaseURL:    cfg.APIs.Wikipedia.BaseURL,
		TopK:       cfg.APIs.Wikipedia.TopK,
		MaxChars:   cfg.APIs.Wikipedia.MaxChars,
		Timeout:    config.GetDuration(cfg.APIs.Wikipedia.Timeout),
		MaxRetries: stages[config.StageEncyclopediaLookup].MaxRetries,
		CacheTTL:   cacheTTL,
	}, store)

	tavily := search.NewTavily(search.TavilyConfig{
		BaseURL:     cfg.APIs.Tavily.BaseURL,
		APIKey:      cfg.APIs.Tavily.APIKey,
		SearchDepth: cfg.APIs.Tavily.SearchDepth,
		MaxResults:  cfg.APIs.Tavily.MaxResults,
		Timeout:     config.GetDuration(cfg.APIs.Tavily.Timeout),
		MaxRetries:  stages[config.StageVerifyAnswer].MaxRetries,
		CacheTTL:    cacheTTL,
	}, store)

	serper := search.NewSerper(search.SerperConfig{
		BaseURL:    cfg.APIs.Serper.BaseURL,
		APIKey:     cfg.APIs.Serper.APIKey,
		Num:        cfg.APIs.Serper.Num,
		Timeout:    config.GetDuration(cfg.APIs.Serper.Timeout),
		MaxRetries: stages[config.StageVerifyAnswer].MaxRetries,
		CacheTTL:   cacheTTL,
	}, store)

	// --- Stages ---
	classifier := classifyquery.NewHandler(&classifyquery.Config{
		Timeout:           timeout(config.StageClassifyQuery),
		MaxClarifications: cfg.Resolution.MaxClarifications,
		Now:               time.Now,
	}, model, ui, &classifyQueryLoggerAdapter{log})

	financial := financiallookup.NewHandler(&financiallookup.Config{
		Timeout:         timeout(config.StageFinancialLookup),
		MaxTickerLength: 5,
		Now:             time.Now,
	}, model, quotes, &financialLookupLoggerAdapter{log})

	encyclopedia := encyclopedialookup.NewHandler(&encyclopedialookup.Config{
		Timeout: timeout(config.StageEncyclopediaLookup),
	}, model, wiki, &encyclopediaLookupLoggerAdapter{log})

	router := routequery.NewHandler(&routequery.Config{
		Timeout: timeout(config.StageRouteQuery),
	}, financial, encyclopedia, &routeQueryLoggerAdapter{log})

	evaluator := evaluateanswer.NewHandler(&evaluateanswer.Config{
		Timeout: timeout(config.StageEvaluateAnswer),
	}, grader, &evaluateAnswerLoggerAdapter{log})

	verifier := verifyanswer.NewHandler(&verifyanswer.Config{
		Timeout:       timeout(config.StageVerifyAnswer),
		SearchTimeout: config.GetDuration(cfg.APIs.Tavily.Timeout),
		MaxSources:    cfg.Resolution.MaxSources,
		SnippetCount:  3,
		Policy:        verifyanswer.Policy(cfg.Resolution.UncorroboratedPolicy),
	}, model, tavily, serper, &verifyAnswerLoggerAdapter{log})

	return resolutionloop.NewHandler(&resolutionloop.Config{
		MaxAttempts: cfg.Resolution.MaxAttempts,
	}, resolutionloop.Stages{
		Classifier: classifier,
		Router:     router,
		Evaluator:  evaluator,
		Verifier:   verifier,
	}, ui, obs, &resolutionLoopLoggerAdapter{log})
}

// Logger adapters for stages that declare their own Logger interfaces
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
