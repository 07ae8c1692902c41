// internal/models/query_types.go
package models

import "strings"

// Intent is the routing category of a structured query.
type Intent string

const (
	IntentGeneral   Intent = "GENERAL"
	IntentNews      Intent = "NEWS"
	IntentFinancial Intent = "FINANCIAL"
)

// Valid reports whether the intent is one the router knows how to dispatch.
func (i Intent) Valid() bool {
	switch i {
	case IntentGeneral, IntentNews, IntentFinancial:
		return true
	}
	return false
}

// Topic is the fine-grained aspect the user asked about. It drives the
// tool-optimized query text and is folded into an Intent for routing.
type Topic string

const (
	TopicGeneralInformation Topic = "general information"
	TopicLocation           Topic = "location"
	TopicBusinessModel      Topic = "business model"
	TopicInvestments        Topic = "investments"
	TopicStock              Topic = "stock"
	TopicNews               Topic = "news"
	TopicProducts           Topic = "products"
	TopicHistory            Topic = "history"
)

// KnownTopics lists the topics the extractor may return, in prompt order.
var KnownTopics = []Topic{
	TopicGeneralInformation,
	TopicLocation,
	TopicBusinessModel,
	TopicInvestments,
	TopicStock,
	TopicNews,
	TopicProducts,
	TopicHistory,
}

// ParseTopic normalizes free text into a known topic.
func ParseTopic(s string) (Topic, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range KnownTopics {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Intent folds the topic into its routing category.
func (t Topic) Intent() Intent {
	switch t {
	case TopicStock:
		return IntentFinancial
	case TopicNews:
		return IntentNews
	default:
		return IntentGeneral
	}
}
