// internal/models/answer.go
package models

// SourceKind identifies which primary provider produced a candidate.
type SourceKind string

const (
	SourceKindFinancial    SourceKind = "FINANCIAL_PROVIDER"
	SourceKindEncyclopedia SourceKind = "ENCYCLOPEDIA_PROVIDER"
	SourceKindNone         SourceKind = "NONE"
)

// Source is a labelled citation.
type Source struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CandidateAnswer is the first-pass result from a single primary handler.
type CandidateAnswer struct {
	Text       string     `json:"text"`
	SourceKind SourceKind `json:"sourceKind"`
	Ticker     string     `json:"ticker,omitempty"`
	Found      bool       `json:"found"`

	// Provenance is the primary provider's own citation, if any.
	Provenance *Source `json:"provenance,omitempty"`
}

// EmptyCandidate is the outcome of a provider failure or an empty lookup.
func EmptyCandidate(kind SourceKind) CandidateAnswer {
	return CandidateAnswer{SourceKind: kind}
}

// IsResolvedNegative reports a user-facing "not found" answer, such as a
// company without a public ticker.
func (c CandidateAnswer) IsResolvedNegative() bool {
	return !c.Found && c.Text != ""
}

// IsUsable reports whether the candidate carries text worth evaluating.
func (c CandidateAnswer) IsUsable() bool {
	return c.Found && c.Text != ""
}

// Verdict is the evaluator's judgement of a text against a query.
type Verdict struct {
	Relevant bool `json:"relevant"`
	Complete bool `json:"complete"`
}

// Accepted reports whether the text can stand as a final answer.
func (v Verdict) Accepted() bool {
	return v.Relevant && v.Complete
}

// VerifiedAnswer is the cross-checked answer with ordered, unique sources.
type VerifiedAnswer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`

	// Corroborated is false when the text was kept under the flag policy
	// without support from either search provider.
	Corroborated bool `json:"corroborated"`
}

// IsEmpty reports an insufficient verification result.
func (v VerifiedAnswer) IsEmpty() bool {
	return v.Text == ""
}
