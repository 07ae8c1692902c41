// internal/common/search/search.go
package search

import (
	"context"
	"errors"
	"strings"
)

// maxResults caps every provider's result list.
const maxResults = 5

var ErrMissingAPIKey = errors.New("SEARCH_API_KEY_MISSING")

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider runs a web search.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// JoinSnippets joins the first n non-empty snippets with spaces.
func JoinSnippets(results []Result, n int) string {
	var parts []string
	for _, r := range results {
		if len(parts) == n {
			break
		}
		if s := strings.TrimSpace(r.Snippet); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
