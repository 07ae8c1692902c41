// internal/workers/resolution/classify-query/handler.go
package classifyquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/common/validation"
	"company-assistant/internal/models"
)

const (
	TaskType = "classify-query"
)

var (
	ErrInvalidInput        = errors.New("INVALID_CLASSIFY_INPUT")
	ErrUnderspecifiedQuery = errors.New("UNDERSPECIFIED_QUERY")
	ErrUserAborted         = errors.New("USER_ABORTED")
)

const ambiguitySystemPrompt = `You are an assistant whose sole task is to determine whether a company-related query is ambiguous. Follow these steps strictly:
1. Identify the company name mentioned in the query.
2. Check if this company name could refer to more than one business entity. If so, it is ambiguous. Example: 'Midas' could refer to 'Midas Investments' or 'Midas Automotive Service'.
3. Determine if the query is vague about what aspect of the company is being asked (e.g., location, business model, history).
4. If any of these conditions are met, the query is ambiguous. Otherwise, it is not.
If ambiguous, output exactly in JSON format: {"ambiguous": true, "follow_up": "Clarification question"}
If not ambiguous, output exactly: {"ambiguous": false, "follow_up": null}`

const clarifySystemPrompt = `You are an assistant that refines a user query based on clarification input. Ensure that the refined query is clear, precise, and correctly structured. Reply with the refined query only.`

var extractionSystemPrompt = `You are an assistant that extracts structured information from user queries about companies. Follow these instructions:
1. Identify the full company name (e.g., 'Sequoia' -> 'Sequoia Capital', 'Apple' -> 'Apple, Inc.'). If no company is mentioned, use "Unknown".
2. Determine the user's intent from this list: ` + topicList() + `.
3. If a specific time, year, or relative time expression (e.g., "recently", "latest", "current") is mentioned, extract it in the 'time_reference' field; otherwise, leave it blank.
4. For the 'details' field, extract any REMAINING modifier that refines or specifies the main intent (e.g., 'price' in 'stock price', 'headquarters' in 'headquarters location'). Do not repeat the company name or generic phrases.
Output your answer strictly in JSON format as: {"company": "<company>", "intent": "<intent>", "details": "<details>", "time_reference": "<time_reference>"}`

var relativeTimeWords = []string{"recently", "latest", "current", "today", "this year"}

var (
	ambiguity  = validation.MustCompile(ambiguitySchema)
	extractor  = validation.MustCompile(extractionSchema)
	whitespace = regexp.MustCompile(`\s+`)
)

var topicPatterns = func() map[models.Topic]*regexp.Regexp {
	out := make(map[models.Topic]*regexp.Regexp, len(models.KnownTopics))
	for _, t := range models.KnownTopics {
		out[t] = wordPattern(string(t))
	}
	return out
}()

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
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

// Asker puts a clarification question to the user.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config *Config
	llm    LLM
	asker  Asker
	logger Logger
}

func NewHandler(config *Config, llm LLM, asker Asker, log Logger) *Handler {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Handler{
		config: config,
		llm:    llm,
		asker:  asker,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}

	text := collapse(input.RawText)
	if input.IsRetry {
		q := h.composeRetry(ctx, text, input.Prior)
		if q.HasCompany() {
			h.logger.Info("retry query composed", map[string]interface{}{
				"company":      q.CompanyName,
				"refinedQuery": q.RefinedQuery,
			})
			return &Output{Query: q}, nil
		}
		h.logger.Warn("retry query has no company, falling back to clarification", map[string]interface{}{
			"rawText": text,
		})
	}

	clarifications := 0
	if text != "" && !input.IsRetry {
		if followUp, ok := h.detectAmbiguity(ctx, text); ok {
			clarifications++
			answer, err := h.ask(ctx, "Hmm, I need some clarification. "+followUp)
			if err != nil {
				return nil, err
			}
			text = h.refine(ctx, text, answer)
		}
	}

	for {
		var ext extraction
		if text != "" {
			ext, _ = h.extract(ctx, text)
		}

		company := strings.TrimSpace(ext.Company)
		topic, topicOK := models.ParseTopic(ext.Intent)
		hasCompany := company != "" && !strings.EqualFold(company, "unknown")

		if hasCompany && topicOK {
			q := h.build(company, topic, ext.Details, ext.TimeReference)
			h.logger.Info("query classified", map[string]interface{}{
				"company":        q.CompanyName,
				"intent":         string(q.Intent),
				"topic":          string(q.Topic),
				"refinedQuery":   q.RefinedQuery,
				"clarifications": clarifications,
			})
			return &Output{Query: q, Clarifications: clarifications}, nil
		}

		if clarifications >= h.config.MaxClarifications {
			h.logger.Warn("query still underspecified after clarification", map[string]interface{}{
				"clarifications": clarifications,
				"rawText":        text,
			})
			return nil, fmt.Errorf("%w: %w", ErrUnderspecifiedQuery, commonerrors.NewUnderspecifiedQueryError(clarifications))
		}
		clarifications++

		question := "Which company would you like to know about?"
		if hasCompany {
			question = fmt.Sprintf("What would you like to know about %s? For example its location, history, products, stock or latest news.", company)
		}
		answer, err := h.ask(ctx, question)
		if err != nil {
			return nil, err
		}
		if text == "" {
			text = collapse(answer)
		} else {
			text = h.refine(ctx, text, answer)
		}
	}
}

// composeRetry keeps the established intent and passes the user's enriched
// text through as "{company} {details} {time}".
func (h *Handler) composeRetry(ctx context.Context, text string, prior *models.StructuredQuery) models.StructuredQuery {
	q := models.StructuredQuery{IsRetry: true}
	if prior != nil {
		q.CompanyName = prior.CompanyName
		q.Intent = prior.Intent
		q.Topic = prior.Topic
	}
	if text == "" {
		if prior != nil {
			q.RefinedQuery = prior.RefinedQuery
		}
		return q
	}

	ext, ok := h.extract(ctx, text)
	if !ok {
		q.RefinedQuery = text
		return q
	}
	if c := strings.TrimSpace(ext.Company); c != "" && !strings.EqualFold(c, "unknown") {
		q.CompanyName = c
	}
	if q.Intent == "" {
		if topic, ok := models.ParseTopic(ext.Intent); ok {
			q.Topic = topic
			q.Intent = topic.Intent()
		} else {
			q.Intent = models.IntentGeneral
		}
	}
	q.Detail = collapse(ext.Details)
	q.TimeReference = collapse(ext.TimeReference)
	q.RefinedQuery = collapse(q.CompanyName + " " + q.Detail + " " + q.TimeReference)
	return q
}

func (h *Handler) build(company string, topic models.Topic, details, timeRef string) models.StructuredQuery {
	details = removeWord(details, topic)
	timeRef = h.resolveTime(timeRef)

	return models.StructuredQuery{
		CompanyName:   company,
		Intent:        topic.Intent(),
		Topic:         topic,
		Detail:        details,
		TimeReference: timeRef,
		RefinedQuery:  refinedQuery(company, topic, details, timeRef),
	}
}

// refinedQuery phrases the query the way the downstream providers answer best.
func refinedQuery(company string, topic models.Topic, details, timeRef string) string {
	var q string
	switch topic {
	case models.TopicGeneralInformation:
		q = company + " history and products overview"
	case models.TopicLocation:
		if details == "" {
			q = company + " headquarters location"
		} else {
			q = company + " " + details + " location"
		}
	case models.TopicBusinessModel:
		q = company + " revenue model"
	case models.TopicInvestments:
		q = company + " investment portfolio " + timeRef
	case models.TopicStock:
		q = company + " stock " + details
	case models.TopicNews:
		q = "Latest news on " + company + " " + timeRef
	case models.TopicProducts:
		q = company + " product lineup " + timeRef
	case models.TopicHistory:
		q = company + " history overview " + timeRef
	default:
		q = company + " " + details + " " + timeRef
	}
	return collapse(q)
}

func (h *Handler) resolveTime(timeRef string) string {
	timeRef = collapse(timeRef)
	lower := strings.ToLower(timeRef)
	for _, w := range relativeTimeWords {
		if strings.Contains(lower, w) {
			return strconv.Itoa(h.config.Now().Year())
		}
	}
	return timeRef
}

// detectAmbiguity returns the follow-up question when the model flags the
// query as ambiguous. Unparseable replies count as unambiguous.
func (h *Handler) detectAmbiguity(ctx context.Context, text string) (string, bool) {
	reply, err := h.complete(ctx, ambiguitySystemPrompt, "Query: "+text)
	if err != nil {
		h.logger.Warn("ambiguity check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}

	var out ambiguityReply
	if err := ambiguity.Decode(reply, &out); err != nil {
		h.logger.Warn("ambiguity reply rejected", map[string]interface{}{
			"error": commonerrors.NewInvalidLLMOutputError(err.Error()).Error(),
		})
		return "", false
	}
	if !out.Ambiguous {
		return "", false
	}

	followUp := strings.TrimSpace(out.FollowUp)
	if followUp == "" {
		followUp = "Could you clarify?"
	}
	return followUp, true
}

// extract reports false, with company and intent "Unknown", when the reply
// cannot be read.
func (h *Handler) extract(ctx context.Context, text string) (extraction, bool) {
	unknown := extraction{Company: "Unknown", Intent: "Unknown"}

	reply, err := h.complete(ctx, extractionSystemPrompt, "Query: "+text)
	if err != nil {
		h.logger.Warn("extraction call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return unknown, false
	}

	var out extraction
	if err := extractor.Decode(reply, &out); err != nil {
		h.logger.Warn("extraction reply rejected", map[string]interface{}{
			"error": commonerrors.NewInvalidLLMOutputError(err.Error()).Error(),
		})
		return unknown, false
	}
	return out, true
}

// refine folds a clarification into the query. Without a model reply the
// two are simply joined.
func (h *Handler) refine(ctx context.Context, original, clarification string) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Original Query: %s", original))
	parts = append(parts, fmt.Sprintf("Clarification: %s", clarification))
	parts = append(parts, "Refined Query:")

	reply, err := h.complete(ctx, clarifySystemPrompt, strings.Join(parts, "\n"))
	if err == nil {
		if refined := collapse(strings.Trim(reply, "\"")); refined != "" {
			return refined
		}
	} else {
		h.logger.Warn("refinement call failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return collapse(original + " " + clarification)
}

func (h *Handler) ask(ctx context.Context, question string) (string, error) {
	answer, err := h.asker.Ask(ctx, question)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrUserAborted, err)
	}
	answer = collapse(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: %w", ErrUserAborted, commonerrors.NewUserAbortError())
	}
	return answer, nil
}

func (h *Handler) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}
	return h.llm.Complete(ctx, systemPrompt, userPrompt)
}

// removeWord strips the topic name from text.
func removeWord(text string, topic models.Topic) string {
	if topic == "" {
		return collapse(text)
	}
	re, ok := topicPatterns[topic]
	if !ok {
		re = wordPattern(string(topic))
	}
	return collapse(re.ReplaceAllString(text, ""))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func topicList() string {
	names := make([]string, len(models.KnownTopics))
	for i, t := range models.KnownTopics {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Execute turns raw text into a structured query, asking the user for
// clarification while the company or topic is missing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
