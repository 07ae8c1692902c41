// internal/workers/resolution/route-query/handler.go
package routequery

import (
	"context"
	"errors"
	"fmt"

	commonerrors "company-assistant/internal/common/errors"
	"company-assistant/internal/models"
)

const (
	TaskType = "route-query"
)

var (
	ErrUnrecognizedIntent = errors.New("UNRECOGNIZED_INTENT")
	ErrInvalidQuery       = errors.New("INVALID_QUERY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	financial QueryHandler
	general   QueryHandler
	logger    Logger
}

func NewHandler(config *Config, financial, general QueryHandler, log Logger) *Handler {
	return &Handler{
		config:    config,
		financial: financial,
		general:   general,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Select maps an intent to its primary handler route.
func Select(intent models.Intent) (Route, error) {
	switch intent {
	case models.IntentFinancial:
		return RouteFinancial, nil
	case models.IntentGeneral, models.IntentNews:
		return RouteGeneral, nil
	}
	return "", fmt.Errorf("%w: %w", ErrUnrecognizedIntent, commonerrors.NewUnrecognizedIntentError(string(intent)))
}

func (h *Handler) execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error) {
	if query == nil {
		return nil, ErrInvalidQuery
	}
	if !query.HasCompany() {
		return nil, fmt.Errorf("%w: company name is required before routing", ErrInvalidQuery)
	}

	route, err := Select(query.Intent)
	if err != nil {
		h.logger.Error("unrecognized intent", map[string]interface{}{
			"intent": string(query.Intent),
		})
		return nil, err
	}

	target := h.general
	kind := models.SourceKindEncyclopedia
	if route == RouteFinancial {
		target = h.financial
		kind = models.SourceKindFinancial
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	h.logger.Info("routing query", map[string]interface{}{
		"route":   string(route),
		"intent":  string(query.Intent),
		"company": query.CompanyName,
	})

	candidate, err := target.Execute(ctx, query)
	if err != nil {
		h.logger.Warn("primary handler failed, using empty candidate", map[string]interface{}{
			"route": string(route),
			"error": err.Error(),
		})
		empty := models.EmptyCandidate(kind)
		return &empty, nil
	}
	if candidate == nil {
		empty := models.EmptyCandidate(kind)
		return &empty, nil
	}
	return candidate, nil
}

// Execute dispatches query to the primary handler for its intent and returns
// that handler's candidate unchanged.
func (h *Handler) Execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error) {
	return h.execute(ctx, query)
}
