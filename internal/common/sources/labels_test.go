package sources

import (
	"testing"

	"company-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.businessinsider.com/tesla-stock", "Business Insider"},
		{"https://en.wikipedia.org/wiki/Microsoft", "Wikipedia"},
		{"https://www.bbc.co.uk/news/business", "BBC"},
		{"https://finance.yahoo.com/quote/TSLA", "Yahoo"},
		{"https://www.wsj.com/articles/x", "WSJ"},
		{"https://www.nytimes.com/2024/01/01/tech", "NY Times"},
		{"https://www.fool.com/investing", "Fool"},
		{"https://seekingalpha.com/symbol/AAPL", "Seeking Alpha"},
		{"https://www.the-verge.com/x", "THE Verge"},
		{"https://www.cnbc.com/quotes/MSFT", "Cnbc"},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.url))
		})
	}
}

func TestSegment(t *testing.T) {
	assert.Equal(t, []string{"wall", "street", "journal"}, segment("wallstreetjournal"))
	assert.Equal(t, []string{"morningstar"}, segment("morningstar"))
	assert.Equal(t, []string{"xyzzy"}, segment("xyzzy"))
	assert.Nil(t, segment(""))
}

func TestFromURL(t *testing.T) {
	s, ok := FromURL("https://www.reuters.com/markets")
	assert.True(t, ok)
	assert.Equal(t, models.Source{Label: "Reuters", URL: "https://www.reuters.com/markets"}, s)

	_, ok = FromURL("mailto:")
	assert.False(t, ok)
}

func TestDedupe(t *testing.T) {
	in := []models.Source{
		{Label: "Wikipedia", URL: "https://en.wikipedia.org/wiki/Tesla,_Inc."},
		{Label: "Reuters", URL: "https://www.reuters.com/a"},
		{Label: "wikipedia", URL: "https://de.wikipedia.org/wiki/Tesla"},
		{Label: "", URL: "https://x.test"},
		{Label: "Reuters", URL: "https://www.reuters.com/b"},
	}
	out := Dedupe(in)
	assert.Equal(t, []models.Source{in[0], in[1]}, out)
}
