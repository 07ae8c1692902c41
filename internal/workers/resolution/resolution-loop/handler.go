// internal/workers/resolution/resolution-loop/handler.go
package resolutionloop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"company-assistant/internal/common/metrics"
	"company-assistant/internal/common/observability"
	"company-assistant/internal/common/userio"
	"company-assistant/internal/models"
	classifyquery "company-assistant/internal/workers/resolution/classify-query"
	evaluateanswer "company-assistant/internal/workers/resolution/evaluate-answer"
	routequery "company-assistant/internal/workers/resolution/route-query"
	verifyanswer "company-assistant/internal/workers/resolution/verify-answer"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TaskType = "resolution-loop"
)

var (
	ErrMissingStage = errors.New("MISSING_STAGE")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	stages Stages
	ui     userio.UserIO
	obs    *observability.Observability
	logger Logger
}

// NewHandler wires the loop. obs may be nil.
func NewHandler(config *Config, stages Stages, ui userio.UserIO, obs *observability.Observability, log Logger) (*Handler, error) {
	if stages.Classifier == nil || stages.Router == nil || stages.Evaluator == nil || stages.Verifier == nil {
		return nil, ErrMissingStage
	}
	return &Handler{
		config: config,
		stages: stages,
		ui:     ui,
		obs:    obs,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}, nil
}

// run holds the state of one resolution.
type run struct {
	res    *models.Resolution
	retry  models.RetryState
	logger Logger
}

// Run prompts for questions and resolves them until the user stops.
func (h *Handler) Run(ctx context.Context) error {
	for {
		h.enter(StateStart)
		raw, err := h.ui.Ask(ctx, startPrompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			h.ui.Notify(GoodbyeMessage)
			return nil
		}

		res, err := h.Resolve(ctx, raw)
		if err != nil {
			return err
		}
		if res.ExitRequested {
			h.ui.Notify(GoodbyeMessage)
			return nil
		}
	}
}

// Resolve drives one question from classification to a final answer or a
// terminal message, then asks whether to search again. Only context
// cancellation and an unrecognized intent are returned as errors.
func (h *Handler) Resolve(ctx context.Context, rawText string) (*models.Resolution, error) {
	id := uuid.New().String()
	r := &run{
		res: &models.Resolution{ID: id},
		logger: h.logger.With(map[string]interface{}{
			"resolutionId": id,
		}),
	}

	ctx, span := h.obs.StartSpan(ctx, "resolution", attribute.String("resolution.id", id))
	defer span.End()

	start := time.Now()
	err := h.resolve(ctx, r, rawText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("resolution aborted", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	r.res.Attempts = r.retry.AttemptCount
	outcome := string(r.res.Outcome)
	metrics.ResolutionOutcomes.WithLabelValues(outcome).Inc()
	metrics.ResolutionAttempts.Observe(float64(r.res.Attempts))
	h.obs.RecordResolution(ctx, outcome, time.Since(start))
	span.SetAttributes(
		attribute.String("resolution.outcome", outcome),
		attribute.Int("resolution.attempts", r.res.Attempts),
	)

	r.logger.Info("resolution finished", map[string]interface{}{
		"outcome":       outcome,
		"attempts":      r.res.Attempts,
		"sourceCount":   len(r.res.Sources),
		"exitRequested": r.res.ExitRequested,
	})
	return r.res, nil
}

func (h *Handler) resolve(ctx context.Context, r *run, rawText string) error {
	input := &classifyquery.Input{RawText: rawText}

	for {
		log := r.logger.With(map[string]interface{}{
			"attempt": r.retry.AttemptCount,
		})

		// CLASSIFY
		query, err := h.classify(ctx, input, log)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, classifyquery.ErrUserAborted) {
				h.enter(StateTerminal)
				r.res.Outcome = models.OutcomeAborted
				r.res.ExitRequested = true
				return nil
			}
			log.Warn("query could not be classified", map[string]interface{}{
				"error": err.Error(),
			})
			return h.terminal(ctx, r, notUnderstoodMessage, models.OutcomeUnderspecified)
		}

		// ROUTE
		candidate, err := h.route(ctx, query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, routequery.ErrUnrecognizedIntent) {
				return fmt.Errorf("route %q: %w", query.Intent, err)
			}
			log.Warn("query could not be routed", map[string]interface{}{
				"error": err.Error(),
			})
			return h.terminal(ctx, r, notUnderstoodMessage, models.OutcomeUnderspecified)
		}

		if candidate.IsResolvedNegative() {
			log.Info("primary handler resolved a negative answer", map[string]interface{}{
				"sourceKind": string(candidate.SourceKind),
			})
			return h.present(ctx, r, candidate.Text, provenance(candidate), models.OutcomeNotFound)
		}

		// EVALUATE_CANDIDATE
		if candidate.IsUsable() {
			if h.evaluate(ctx, StateEvaluateCandidate, query, candidate.Text, log).Accepted() {
				verified := h.verify(ctx, query, candidate, log)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if verified.IsEmpty() {
					log.Info("no corroboration available, presenting candidate with its provenance", nil)
					return h.present(ctx, r, candidate.Text, provenance(candidate), models.OutcomeAccepted)
				}
				return h.present(ctx, r, verified.Text, verified.Sources, models.OutcomeAccepted)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// VERIFY on the query alone
		verified := h.verify(ctx, query, nil, log)

		// EVALUATE_VERIFIED
		if !verified.IsEmpty() && h.evaluate(ctx, StateEvaluateVerified, query, verified.Text, log).Accepted() {
			return h.present(ctx, r, verified.Text, verified.Sources, models.OutcomeAccepted)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// ESCALATE
		h.enter(StateEscalate)
		r.retry.AttemptCount++
		if h.config.MaxAttempts > 0 && r.retry.AttemptCount > h.config.MaxAttempts {
			r.retry.AttemptCount = h.config.MaxAttempts
			log.Warn("escalation limit reached", map[string]interface{}{
				"maxAttempts": h.config.MaxAttempts,
			})
			return h.terminal(ctx, r, unresolvedMessage, models.OutcomeUnresolved)
		}

		detail, err := h.ui.Ask(ctx, detailPrompt)
		detail = strings.TrimSpace(detail)
		if err != nil || detail == "" {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			h.enter(StateTerminal)
			r.res.Outcome = models.OutcomeAborted
			r.res.ExitRequested = true
			return nil
		}

		r.retry.RefinedQuery = query.RefinedQuery + " " + detail
		log.Info("escalating with user detail", map[string]interface{}{
			"refinedQuery": r.retry.RefinedQuery,
		})
		prior := query
		input = &classifyquery.Input{
			RawText: r.retry.RefinedQuery,
			Prior:   &prior,
			IsRetry: true,
		}
	}
}

func (h *Handler) classify(ctx context.Context, input *classifyquery.Input, log Logger) (models.StructuredQuery, error) {
	ctx, span := h.stateSpan(ctx, StateClassify)
	defer span.End()

	out, err := h.stages.Classifier.Execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		return models.StructuredQuery{}, err
	}
	if input.IsRetry {
		out.Query.IsRetry = true
	}
	span.SetAttributes(
		attribute.String("query.intent", string(out.Query.Intent)),
		attribute.Int("query.clarifications", out.Clarifications),
	)
	return out.Query, nil
}

func (h *Handler) route(ctx context.Context, query models.StructuredQuery) (*models.CandidateAnswer, error) {
	ctx, span := h.stateSpan(ctx, StateRoute)
	defer span.End()

	candidate, err := h.stages.Router.Execute(ctx, &query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if candidate == nil {
		empty := models.EmptyCandidate(models.SourceKindNone)
		candidate = &empty
	}
	span.SetAttributes(
		attribute.String("candidate.sourceKind", string(candidate.SourceKind)),
		attribute.Bool("candidate.found", candidate.Found),
	)
	return candidate, nil
}

// evaluate returns a rejecting verdict when the evaluator fails.
func (h *Handler) evaluate(ctx context.Context, state State, query models.StructuredQuery, text string, log Logger) models.Verdict {
	ctx, span := h.stateSpan(ctx, state)
	defer span.End()

	out, err := h.stages.Evaluator.Execute(ctx, &evaluateanswer.Input{Query: query, Text: text})
	if err != nil || out == nil {
		if err != nil {
			span.RecordError(err)
			log.Warn("evaluation failed", map[string]interface{}{
				"state": string(state),
				"error": err.Error(),
			})
		}
		return models.Verdict{}
	}
	span.SetAttributes(attribute.Bool("verdict.accepted", out.Verdict.Accepted()))
	return out.Verdict
}

// verify returns an empty answer when the verifier fails.
func (h *Handler) verify(ctx context.Context, query models.StructuredQuery, candidate *models.CandidateAnswer, log Logger) models.VerifiedAnswer {
	ctx, span := h.stateSpan(ctx, StateVerify)
	defer span.End()

	out, err := h.stages.Verifier.Execute(ctx, &verifyanswer.Input{Query: query, Candidate: candidate})
	if err != nil || out == nil {
		if err != nil {
			span.RecordError(err)
			log.Warn("verification failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return models.VerifiedAnswer{}
	}
	span.SetAttributes(
		attribute.Int("verified.sources", len(out.Sources)),
		attribute.Bool("verified.empty", out.IsEmpty()),
	)
	return *out
}

// present shows a final answer and asks whether to continue.
func (h *Handler) present(ctx context.Context, r *run, text string, sources []models.Source, outcome models.Outcome) error {
	h.enter(StateAccept)
	r.res.FinalText = text
	r.res.Sources = sources
	r.res.Outcome = outcome
	h.ui.Show(text, sources)
	return h.askContinue(ctx, r)
}

func (h *Handler) terminal(ctx context.Context, r *run, message string, outcome models.Outcome) error {
	h.enter(StateTerminal)
	r.res.FinalText = message
	r.res.Outcome = outcome
	h.ui.Show(message, nil)
	return h.askContinue(ctx, r)
}

func (h *Handler) askContinue(ctx context.Context, r *run) error {
	answer, err := h.ui.Ask(ctx, continuePrompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.res.ExitRequested = true
		return nil
	}
	r.res.ExitRequested = !isYes(answer)
	return nil
}

func (h *Handler) enter(state State) {
	metrics.StateTransitions.WithLabelValues(string(state)).Inc()
}

func (h *Handler) stateSpan(ctx context.Context, state State) (context.Context, trace.Span) {
	h.enter(state)
	return h.obs.StartSpan(ctx, "resolution."+strings.ToLower(string(state)))
}

func provenance(c *models.CandidateAnswer) []models.Source {
	if c.Provenance == nil || c.Provenance.URL == "" {
		return nil
	}
	return []models.Source{*c.Provenance}
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
