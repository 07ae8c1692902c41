// internal/workers/resolution/classify-query/models.go
package classifyquery

import "company-assistant/internal/models"

type Input struct {
	RawText string `json:"rawText"`

	// Prior is the query being escalated. Its intent and topic are kept
	// when IsRetry is set.
	Prior   *models.StructuredQuery `json:"prior,omitempty"`
	IsRetry bool                    `json:"isRetry"`
}

type Output struct {
	Query          models.StructuredQuery `json:"query"`
	Clarifications int                    `json:"clarifications"`
}

type ambiguityReply struct {
	Ambiguous bool   `json:"ambiguous"`
	FollowUp  string `json:"follow_up"`
}

type extraction struct {
	Company       string `json:"company"`
	Intent        string `json:"intent"`
	Details       string `json:"details"`
	TimeReference string `json:"time_reference"`
}

const ambiguitySchema = `{
	"type": "object",
	"required": ["ambiguous"],
	"properties": {
		"ambiguous": {"type": "boolean"},
		"follow_up": {"type": ["string", "null"]}
	}
}`

const extractionSchema = `{
	"type": "object",
	"required": ["company", "intent"],
	"properties": {
		"company": {"type": "string"},
		"intent": {"type": "string"},
		"details": {"type": ["string", "null"]},
		"time_reference": {"type": ["string", "null"]}
	}
}`
