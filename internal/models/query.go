// internal/models/query.go
package models

import "strings"

// StructuredQuery is the classifier's view of a raw user question.
type StructuredQuery struct {
	CompanyName   string `json:"companyName"`
	Intent        Intent `json:"intent"`
	Topic         Topic  `json:"topic,omitempty"`
	Detail        string `json:"detail,omitempty"`
	TimeReference string `json:"timeReference,omitempty"`
	IsRetry       bool   `json:"isRetry"`

	// RefinedQuery is the text handed to providers.
	RefinedQuery string `json:"refinedQuery"`
}

// HasCompany reports whether the company name is usable for routing.
func (q StructuredQuery) HasCompany() bool {
	name := strings.TrimSpace(q.CompanyName)
	return name != "" && !strings.EqualFold(name, "unknown")
}

// SearchText returns the refined query, falling back to the company name.
func (q StructuredQuery) SearchText() string {
	if s := strings.TrimSpace(q.RefinedQuery); s != "" {
		return s
	}
	return strings.TrimSpace(q.CompanyName)
}

// RetryState bounds the escalation loop for one resolution.
type RetryState struct {
	AttemptCount int    `json:"attemptCount"`
	RefinedQuery string `json:"refinedQuery"`
}
