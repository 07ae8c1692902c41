// internal/workers/resolution/route-query/models.go
package routequery

import (
	"context"

	"company-assistant/internal/models"
)

// QueryHandler is a primary handler wrapping one external data source.
type QueryHandler interface {
	Execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error)
}

// Route names the primary handler chosen for an intent.
type Route string

const (
	RouteFinancial Route = "financial"
	RouteGeneral   Route = "general"
)
