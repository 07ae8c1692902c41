// internal/workers/resolution/verify-answer/handler.go
package verifyanswer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/common/search"
	"company-assistant/internal/common/sources"
	"company-assistant/internal/models"
)

const (
	TaskType = "verify-answer"
)

var (
	ErrInvalidInput = errors.New("INVALID_VERIFICATION_INPUT")
)

const validationSystemPrompt = `You are an assistant that validates whether an auxiliary response is accurate, using the results of two independent web searches (First search and Second search).
- If the auxiliary response contains factually correct and relevant information supported by the search results, respond with 'valid'.
- If the auxiliary response is contradicted by the searches, or neither search supports its key claim, respond with 'invalid'.
Respond with either 'valid' or 'invalid'.`

const synthesisSystemPrompt = `You are an assistant that synthesizes and validates search results for a user query.
Given two separate web searches, produce a DIRECT, concise (one sentence) answer that combines the key information from both results. Follow these rules:
1. Address the query directly without additional commentary.
2. If the query requests a list (e.g., companies), include specific, concrete examples.
3. Prefer facts that appear in both searches. Use a fact found in only one search only if the other search does not contradict it.
4. Do not include sources, links or citations.
5. If the searches do not answer the query, respond with exactly ` + insufficient + `.`

var (
	trailingSource = regexp.MustCompile(`\s*\(Source:[^)]*\)\.?\s*$`)
	wordPattern    = regexp.MustCompile(`[a-z0-9]+`)
)

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
	config  *Config
	llm     LLM
	primary search.Provider
	second  search.Provider
	logger  Logger
	errors  *commonerrors.ErrorHandler
}

func NewHandler(config *Config, llm LLM, primary, second search.Provider, log Logger) *Handler {
	if config.MaxSources <= 0 {
		config.MaxSources = 5
	}
	if config.SnippetCount <= 0 {
		config.SnippetCount = 3
	}
	if config.Policy == "" {
		config.Policy = PolicyDrop
	}
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:  config,
		llm:     llm,
		primary: primary,
		second:  second,
		logger:  logger,
		errors:  commonerrors.NewErrorHandler(logger),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*models.VerifiedAnswer, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	question := input.Query.SearchText()
	first, second := h.searchBoth(ctx, question)

	if len(first.results) == 0 && len(second.results) == 0 {
		h.logger.Warn("no corroborating search results", map[string]interface{}{
			"error": commonerrors.NewNoCorroborationError(question).Error(),
		})
		return &models.VerifiedAnswer{}, nil
	}

	ranked := h.rankSources(question, first, second)

	if c := input.Candidate; c != nil && c.IsUsable() {
		if h.validate(ctx, question, c.Text, first, second) {
			h.logger.Info("candidate corroborated", map[string]interface{}{
				"sourceCount": len(ranked),
			})
			return &models.VerifiedAnswer{
				Text:         c.Text,
				Sources:      withProvenance(c.Provenance, ranked, h.config.MaxSources),
				Corroborated: true,
			}, nil
		}

		if h.config.Policy == PolicyFlag {
			h.logger.Info("candidate not corroborated, keeping it flagged", nil)
			return &models.VerifiedAnswer{
				Text:         unverifiedPrefix + c.Text,
				Sources:      withProvenance(c.Provenance, nil, 0),
				Corroborated: false,
			}, nil
		}
		h.logger.Info("candidate not corroborated, dropping it", nil)
	}

	text := h.synthesize(ctx, question, first, second)
	if text == "" {
		return &models.VerifiedAnswer{}, nil
	}
	return &models.VerifiedAnswer{
		Text:         text,
		Sources:      capSources(ranked, h.config.MaxSources),
		Corroborated: true,
	}, nil
}

// searchBoth queries both providers concurrently. A failed or timed out
// provider contributes no results.
func (h *Handler) searchBoth(ctx context.Context, query string) (providerResult, providerResult) {
	var (
		wg      sync.WaitGroup
		results [2]providerResult
	)

	for i, p := range []search.Provider{h.primary, h.second} {
		if p == nil {
			continue
		}
		wg.Add(1)
		go func(i int, p search.Provider) {
			defer wg.Done()
			results[i] = h.searchOne(ctx, p, query)
		}(i, p)
	}
	wg.Wait()

	return results[0], results[1]
}

func (h *Handler) searchOne(ctx context.Context, p search.Provider, query string) providerResult {
	if h.config.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.SearchTimeout)
		defer cancel()
	}

	results, err := p.Search(ctx, query)
	if err != nil {
		h.errors.Handle(p.Name(), err)
		return providerResult{name: p.Name()}
	}

	return providerResult{
		name:    p.Name(),
		results: results,
		text:    search.JoinSnippets(results, h.config.SnippetCount),
	}
}

func (h *Handler) validate(ctx context.Context, question, candidate string, first, second providerResult) bool {
	var parts []string
	parts = append(parts, fmt.Sprintf("Query: %s", question))
	parts = append(parts, fmt.Sprintf("Auxiliary Response: %s", candidate))
	parts = append(parts, fmt.Sprintf("First search: %s", first.text))
	parts = append(parts, fmt.Sprintf("Second search: %s", second.text))

	reply, err := h.llm.Complete(ctx, validationSystemPrompt, strings.Join(parts, "\n"))
	if err != nil {
		h.logger.Warn("validation call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	word := strings.Trim(strings.ToLower(strings.TrimSpace(reply)), " .'\"`")
	return word == "valid"
}

func (h *Handler) synthesize(ctx context.Context, question string, first, second providerResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("User Query: %s", question))
	parts = append(parts, fmt.Sprintf("First search: %s", first.text))
	parts = append(parts, fmt.Sprintf("Second search: %s", second.text))

	reply, err := h.llm.Complete(ctx, synthesisSystemPrompt, strings.Join(parts, "\n"))
	if err != nil {
		h.logger.Warn("synthesis call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}

	text := strings.TrimSpace(trailingSource.ReplaceAllString(reply, ""))
	if text == "" || strings.EqualFold(strings.Trim(text, ". "), insufficient) {
		return ""
	}
	return text
}

// rankSources orders search hits by how well they match the query. Hits whose
// site was returned by both providers rank higher. Only providers that
// contributed text, and hits that carried a snippet, are cited.
func (h *Handler) rankSources(query string, results ...providerResult) []models.Source {
	terms := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if len(w) > 2 {
			terms[w] = true
		}
	}

	byLabel := make(map[string]*rankedSource)
	var ordered []*rankedSource
	for _, pr := range results {
		if strings.TrimSpace(pr.text) == "" {
			continue
		}
		for _, r := range pr.results {
			if strings.TrimSpace(r.Snippet) == "" {
				continue
			}
			src, ok := sources.FromURL(r.URL)
			if !ok {
				continue
			}
			key := strings.ToLower(src.Label)
			rs, seen := byLabel[key]
			if !seen {
				rs = &rankedSource{source: src, providers: make(map[string]bool), order: len(ordered)}
				byLabel[key] = rs
				ordered = append(ordered, rs)
			}
			rs.providers[pr.name] = true
			if score := relevance(terms, r); score > rs.relevance {
				rs.relevance = score
			}
		}
	}

	for _, rs := range ordered {
		if len(rs.providers) > 1 {
			rs.relevance += 0.5
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].relevance != ordered[j].relevance {
			return ordered[i].relevance > ordered[j].relevance
		}
		return ordered[i].order < ordered[j].order
	})

	out := make([]models.Source, 0, len(ordered))
	for _, rs := range ordered {
		out = append(out, rs.source)
	}
	return out
}

func relevance(terms map[string]bool, r search.Result) float64 {
	score := 1.0
	if len(terms) > 0 {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		matched := 0
		for t := range terms {
			if strings.Contains(text, t) {
				matched++
			}
		}
		score += float64(matched) / float64(len(terms))
	}
	if strings.Contains(r.URL, ".gov") || strings.Contains(r.URL, ".edu") {
		score += 0.2
	}
	if strings.Contains(strings.ToLower(r.Title), "official") {
		score += 0.1
	}
	return score
}

// withProvenance puts the candidate's own citation first, then up to max
// search sources.
func withProvenance(provenance *models.Source, ranked []models.Source, max int) []models.Source {
	var list []models.Source
	if provenance != nil && provenance.URL != "" {
		list = append(list, *provenance)
	}
	list = append(list, capSources(ranked, max)...)
	return sources.Dedupe(list)
}

func capSources(list []models.Source, max int) []models.Source {
	list = sources.Dedupe(list)
	if len(list) > max {
		list = list[:max]
	}
	return list
}

// Execute cross-checks input against two web searches. It never fails on
// provider errors; an empty answer means nothing could be substantiated.
func (h *Handler) Execute(ctx context.Context, input *Input) (*models.VerifiedAnswer, error) {
	return h.execute(ctx, input)
}
