// internal/workers/resolution/evaluate-answer/handler.go
package evaluateanswer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"company-assistant/internal/models"
)

const (
	TaskType = "evaluate-answer"
)

var (
	ErrInvalidInput = errors.New("INVALID_EVALUATION_INPUT")
)

const systemPrompt = `You are an evaluation assistant that determines whether a retrieved response completely and accurately answers the user's question.
Evaluation Criteria:
1. Relevance: Does the information directly address the company and the specific aspect asked about (e.g., user question: 'Apple stock price' -> response includes 'Apple', 'stock' and its price in $)?
2. Completeness: Does the response contain enough concrete information to stand as a final answer without an obvious missing fact?
Decision Rules:
- If the response is relevant and adequately answers the question, return 'sufficient'.
- If the response is not relevant to the question, return 'irrelevant'.
- If the response is relevant but not complete enough to answer the question, return 'incomplete'.
ONLY return 'sufficient', 'irrelevant' or 'incomplete'.`

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// LLM grades a response against a question. Callers should configure it with
// temperature 0 so verdicts are repeatable.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Handler struct {
	config *Config
	llm    LLM
	logger Logger
}

func NewHandler(config *Config, llm LLM, log Logger) *Handler {
	return &Handler{
		config: config,
		llm:    llm,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}

	if strings.TrimSpace(input.Text) == "" {
		return &Output{Verdict: models.Verdict{}, Rating: RatingIrrelevant}, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	reply, err := h.llm.Complete(ctx, systemPrompt, h.buildPrompt(input))
	if err != nil {
		h.logger.Warn("evaluation call failed, treating as incomplete", map[string]interface{}{
			"error": err.Error(),
		})
		return toOutput(RatingIncomplete), nil
	}

	rating := parseRating(reply)
	h.logger.Info("answer evaluated", map[string]interface{}{
		"rating":  string(rating),
		"company": input.Query.CompanyName,
	})
	return toOutput(rating), nil
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("User Question: %s", input.Query.SearchText()))
	if input.Query.HasCompany() {
		parts = append(parts, fmt.Sprintf("Company: %s", input.Query.CompanyName))
	}
	parts = append(parts, fmt.Sprintf("Retrieved Response: %s", input.Text))

	return strings.Join(parts, "\n")
}

// parseRating maps the model reply to a rubric word; anything else counts
// as incomplete.
func parseRating(reply string) Rating {
	word := strings.ToLower(strings.TrimSpace(reply))
	word = strings.Trim(word, " .'\"`")
	switch Rating(word) {
	case RatingSufficient, RatingIrrelevant, RatingIncomplete:
		return Rating(word)
	}
	return RatingIncomplete
}

func toOutput(r Rating) *Output {
	var v models.Verdict
	switch r {
	case RatingSufficient:
		v = models.Verdict{Relevant: true, Complete: true}
	case RatingIrrelevant:
		v = models.Verdict{Relevant: false, Complete: false}
	default:
		v = models.Verdict{Relevant: true, Complete: false}
	}
	return &Output{Verdict: v, Rating: r}
}

// Execute grades input.Text against input.Query.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
