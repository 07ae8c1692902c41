// test/e2e/fakes_test.go
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// Kinds of model call, keyed by a phrase of each stage's system prompt.
const (
	callAmbiguity   = "ambiguity"
	callExtraction  = "extraction"
	callRefine      = "refine"
	callExplanation = "explanation"
	callTicker      = "ticker"
	callSummary     = "summary"
	callAnswer      = "answer"
	callEvaluate    = "evaluate"
	callValidate    = "validate"
	callSynthesize  = "synthesize"
)

var callKinds = []struct {
	phrase string
	kind   string
}{
	{"sole task is to determine", callAmbiguity},
	{"extracts structured information", callExtraction},
	{"refines a user query", callRefine},
	{"no publicly traded ticker", callExplanation},
	{"maps company names", callTicker},
	{"analyzes stock data", callSummary},
	{"only based on the given context", callAnswer},
	{"evaluation assistant", callEvaluate},
	{"validates whether an auxiliary response", callValidate},
	{"synthesizes and validates", callSynthesize},
}

const unknownExtraction = `{"company": "Unknown", "intent": "Unknown", "details": "", "time_reference": ""}`

// fakeLLM serves an OpenAI-compatible chat endpoint with canned replies.
type fakeLLM struct {
	// extractions maps the raw query text to the extraction JSON.
	extractions map[string]string
	// refinements maps a clarification to the refined query.
	refinements map[string]string
	// tickers maps a company name to the ticker reply.
	tickers map[string]string
	// explanations maps a company name to its no-ticker explanation.
	explanations map[string]string
	// summaries maps a ticker to the stock summary.
	summaries map[string]string
	// answers maps a question to the encyclopedia answer.
	answers map[string]string
	// ratings maps a retrieved response to its rubric word, default sufficient.
	ratings map[string]string
	// validations maps a candidate to valid/invalid, default valid.
	validations map[string]string
	// syntheses maps a query to the synthesized answer, default INSUFFICIENT.
	syntheses map[string]string

	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
}

func (f *fakeLLM) start(t *testing.T) *httptest.Server {
	t.Helper()
	f.calls = make(map[string]int)
	f.prompts = make(map[string][]string)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var system, user string
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				system = m.Content
			case "user":
				user = m.Content
			}
		}

		reply := f.reply(system, user)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func (f *fakeLLM) reply(system, user string) string {
	kind := "unknown"
	for _, k := range callKinds {
		if strings.Contains(system, k.phrase) {
			kind = k.kind
			break
		}
	}

	f.mu.Lock()
	f.calls[kind]++
	f.prompts[kind] = append(f.prompts[kind], user)
	f.mu.Unlock()

	switch kind {
	case callAmbiguity:
		return `{"ambiguous": false, "follow_up": null}`
	case callExtraction:
		return lookup(f.extractions, field(user, "Query: "), unknownExtraction)
	case callRefine:
		original := field(user, "Original Query: ")
		clarification := field(user, "Clarification: ")
		return lookup(f.refinements, clarification, original+" "+clarification)
	case callExplanation:
		company := field(user, "Company Name: ")
		return lookup(f.explanations, company, company+" is not publicly traded.")
	case callTicker:
		return lookup(f.tickers, field(user, "Company Name: "), "That company is not publicly traded.")
	case callSummary:
		return lookup(f.summaries, field(user, "Stock Symbol: "), "")
	case callAnswer:
		question := field(user, "Question: ")
		return lookup(f.answers, question, "The context provided does not mention "+question+".")
	case callEvaluate:
		return lookup(f.ratings, field(user, "Retrieved Response: "), "sufficient")
	case callValidate:
		return lookup(f.validations, field(user, "Auxiliary Response: "), "valid")
	case callSynthesize:
		return lookup(f.syntheses, field(user, "User Query: "), "INSUFFICIENT")
	}
	return ""
}

func (f *fakeLLM) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeLLM) userPrompts(kind string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts[kind]...)
}

func field(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func lookup(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

// fakeFinance serves Yahoo-style quotes.
type fakeFinance struct {
	quotes map[string]string
	hits   int32
}

func (f *fakeFinance) count() int {
	return int(atomic.LoadInt32(&f.hits))
}

func (f *fakeFinance) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		symbol := r.URL.Query().Get("symbols")
		body, ok := f.quotes[symbol]
		if !ok {
			body = `{"quoteResponse":{"result":[]}}`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// fakeWiki serves page summaries and a fixed search hit list.
type fakeWiki struct {
	pages map[string]string
	hits  []string

	mu       sync.Mutex
	searches []string
}

func (f *fakeWiki) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
			name := strings.ReplaceAll(strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/"), "_", " ")
			extract, ok := f.pages[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"type":"standard","title":%q,"extract":%q}`, name, extract)
		case r.URL.Path == "/w/api.php":
			f.mu.Lock()
			f.searches = append(f.searches, r.URL.Query().Get("srsearch"))
			f.mu.Unlock()
			var parts []string
			for _, h := range f.hits {
				parts = append(parts, fmt.Sprintf(`{"title":%q}`, h))
			}
			fmt.Fprintf(w, `{"query":{"search":[%s]}}`, strings.Join(parts, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func (f *fakeWiki) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

type hit struct {
	Title   string
	URL     string
	Snippet string
}

// fakeSearch serves both the Tavily and the Serper wire format from one
// result list.
type fakeSearch struct {
	results []hit
	hits    int32
}

func (f *fakeSearch) startTavily(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		var out []map[string]string
		for _, h := range f.results {
			out = append(out, map[string]string{"title": h.Title, "url": h.URL, "content": h.Snippet})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": out})
	}))
	t.Cleanup(server.Close)
	return server
}

func (f *fakeSearch) startSerper(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		var out []map[string]string
		for _, h := range f.results {
			out = append(out, map[string]string{"title": h.Title, "link": h.URL, "snippet": h.Snippet})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"organic": out})
	}))
	t.Cleanup(server.Close)
	return server
}

func (f *fakeSearch) count() int {
	return int(atomic.LoadInt32(&f.hits))
}
