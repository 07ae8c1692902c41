// internal/workers/resolution/encyclopedia-lookup/handler.go
package encyclopedialookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/common/wikipedia"
	"company-assistant/internal/models"
)

const (
	TaskType = "encyclopedia-lookup"
)

var (
	ErrSearchFailed = errors.New("ENCYCLOPEDIA_SEARCH_FAILED")
	ErrInvalidQuery = errors.New("INVALID_QUERY")
)

const answerSystemPrompt = `You are a helpful assistant. Respond to the user's request only based on the given context.
If the context does not mention the user's question, return '` + notMentioned + ` <question>.'
ONLY provide a one-sentence answer that directly answers the question.`

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
	wiki   Encyclopedia
	logger Logger
	errors *commonerrors.ErrorHandler
}

func NewHandler(config *Config, llm LLM, wiki Encyclopedia, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		llm:    llm,
		wiki:   wiki,
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

	question := query.SearchText()

	// Location questions are answered best from the company's own page.
	if query.Topic == models.TopicLocation {
		page, err := h.wiki.Summary(ctx, query.CompanyName)
		if err != nil {
			// Fall back to search.
			h.errors.Handle(ProviderLabel, err)
		} else if answer, ok := h.answer(ctx, question, page); ok {
			return h.candidate(answer, page), nil
		}
	}

	pages, err := h.wiki.Search(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	for i := range pages {
		answer, ok := h.answer(ctx, question, &pages[i])
		if ok {
			return h.candidate(answer, &pages[i]), nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchFailed, ctx.Err())
		}
	}

	h.logger.Info(fmt.Sprintf("No relevant Wikipedia data found for %s.", question), map[string]interface{}{
		"pagesChecked": len(pages),
	})
	empty := models.EmptyCandidate(models.SourceKindEncyclopedia)
	return &empty, nil
}

// answer asks for a one-sentence reply grounded in page. It reports false when
// the page does not cover the question or the call fails.
func (h *Handler) answer(ctx context.Context, question string, page *wikipedia.Page) (string, bool) {
	if page == nil || strings.TrimSpace(page.Extract) == "" {
		return "", false
	}

	prompt := fmt.Sprintf("Question: %s\nContext: %s", question, page.Extract)
	reply, err := h.llm.Complete(ctx, answerSystemPrompt, prompt)
	if err != nil {
		h.logger.Warn("answer call failed", map[string]interface{}{
			"page":  page.Title,
			"error": err.Error(),
		})
		return "", false
	}

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.HasPrefix(strings.ToLower(reply), strings.ToLower(notMentioned)) {
		return "", false
	}
	return reply, true
}

func (h *Handler) candidate(text string, page *wikipedia.Page) *models.CandidateAnswer {
	url := page.URL
	if url == "" {
		url = wikipedia.PageURL(page.Title)
	}
	h.logger.Info("encyclopedia answer found", map[string]interface{}{
		"page": page.Title,
	})
	return &models.CandidateAnswer{
		Text:       text,
		SourceKind: models.SourceKindEncyclopedia,
		Found:      true,
		Provenance: &models.Source{Label: ProviderLabel, URL: url},
	}
}

// Execute answers the query from encyclopedia pages.
func (h *Handler) Execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error) {
	return h.execute(ctx, query)
}
