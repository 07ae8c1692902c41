// internal/common/sources/labels.go
package sources

import (
	"net/url"
	"strings"

	"company-assistant/internal/models"

	"golang.org/x/net/publicsuffix"
)

// lexicon holds the words used to split run-together site names such as
// "businessinsider" or "wallstreetjournal".
var lexicon = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		about alpha analysis apple associated barrons bank bloomberg britannica
		business buzz capital car cbs chronicle city crunch daily digital
		economic economist encyclopedia engadget finance financial fool forbes
		fortune fox global globe guardian herald hub industry info insider
		intelligence investing investopedia investor journal kiplinger mac
		macro mail market markets media money morning morningstar motley
		nasdaq news newsroom official online post press reuters review
		rumors seeking street stock stocks tech times today trade trends
		verge wall washington watch week wiki wikipedia wire wired world
		yahoo york zacks new ny the of and my
	`) {
		lexicon[w] = true
	}
}

// Label turns a URL into a display label from its registrable domain,
// for example https://www.businessinsider.com/x becomes "Business Insider".
func Label(rawURL string) string {
	name := domainName(rawURL)
	if name == "" {
		return ""
	}

	var words []string
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '.' || r == '_' }) {
		words = append(words, segment(part)...)
	}
	for i, w := range words {
		words[i] = formatWord(w)
	}
	return strings.Join(words, " ")
}

// FromURL builds a labelled source, or false when the URL has no host.
func FromURL(rawURL string) (models.Source, bool) {
	label := Label(rawURL)
	if label == "" {
		return models.Source{}, false
	}
	return models.Source{Label: label, URL: rawURL}, true
}

// Dedupe keeps the first source for each label, preserving order.
func Dedupe(list []models.Source) []models.Source {
	seen := make(map[string]bool, len(list))
	out := make([]models.Source, 0, len(list))
	for _, s := range list {
		key := strings.ToLower(strings.TrimSpace(s.Label))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func domainName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return strings.TrimPrefix(host, "www.")
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	return strings.TrimSuffix(etld1, "."+suffix)
}

// segment splits s into the fewest lexicon words. Strings that cannot be
// fully covered are returned whole.
func segment(s string) []string {
	n := len(s)
	if n == 0 {
		return nil
	}

	// best[i] is the fewest words covering s[:i]; prev[i] is where the last word starts.
	best := make([]int, n+1)
	prev := make([]int, n+1)
	for i := 1; i <= n; i++ {
		best[i] = -1
		for j := 0; j < i; j++ {
			if best[j] < 0 || !lexicon[s[j:i]] {
				continue
			}
			if best[i] < 0 || best[j]+1 < best[i] {
				best[i] = best[j] + 1
				prev[i] = j
			}
		}
	}
	if best[n] < 0 {
		return []string{s}
	}

	words := make([]string, best[n])
	for i, k := n, best[n]-1; i > 0; i, k = prev[i], k-1 {
		words[k] = s[prev[i]:i]
	}
	return words
}

func formatWord(w string) string {
	if len(w) <= 3 {
		return strings.ToUpper(w)
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
