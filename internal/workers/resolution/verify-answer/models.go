// internal/workers/resolution/verify-answer/models.go
package verifyanswer

import (
	"company-assistant/internal/common/search"
	"company-assistant/internal/models"
)

const (
	// insufficient is the synthesis reply when the searches do not answer.
	insufficient = "INSUFFICIENT"

	unverifiedPrefix = "(Unverified) "
)

type Input struct {
	Query models.StructuredQuery `json:"query"`

	// Candidate is the primary handler's answer, nil when there is none
	// worth checking.
	Candidate *models.CandidateAnswer `json:"candidate,omitempty"`
}

// providerResult is one provider's contribution to the cross-check.
type providerResult struct {
	name    string
	results []search.Result
	text    string
}

type rankedSource struct {
	source    models.Source
	relevance float64
	providers map[string]bool
	order     int
}
