// internal/workers/resolution/evaluate-answer/models.go
package evaluateanswer

import "company-assistant/internal/models"

// Rating is the rubric word returned by the grading model.
type Rating string

const (
	RatingSufficient Rating = "sufficient"
	RatingIrrelevant Rating = "irrelevant"
	RatingIncomplete Rating = "incomplete"
)

type Input struct {
	Query models.StructuredQuery `json:"query"`
	Text  string                 `json:"text"`
}

type Output struct {
	Verdict models.Verdict `json:"verdict"`
	Rating  Rating         `json:"rating"`
}
