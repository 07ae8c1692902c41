// internal/workers/resolution/encyclopedia-lookup/models.go
package encyclopedialookup

import (
	"context"

	"company-assistant/internal/common/wikipedia"
)

const (
	ProviderLabel = "Wikipedia"

	// notMentioned opens every reply where the context lacks the answer.
	notMentioned = "The context provided does not mention"
)

// Encyclopedia looks up page summaries.
type Encyclopedia interface {
	Summary(ctx context.Context, title string) (*wikipedia.Page, error)
	Search(ctx context.Context, query string) ([]wikipedia.Page, error)
}
