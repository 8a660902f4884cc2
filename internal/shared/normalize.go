package shared

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle reduces an album title to a slug used as its deduplication key.
//
// Diacritics are folded away, case is folded, and every run of characters that are not letters or digits collapses to a single "-":
//
//	"Abbey Road", "abbey   road" and "Abbey-Road" all yield "abbey-road"
//
// Titles made only of punctuation fall back to their case-folded, whitespace-collapsed form so they still key on something.
func NormalizeTitle(title string) string {
	folded := foldTitle(strings.TrimSpace(title))

	var b strings.Builder
	sep := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}

	if b.Len() == 0 {
		return strings.Join(strings.Fields(folded), " ")
	}
	return b.String()
}

// foldTitle strips combining marks and folds case. Transformers are stateful, so a fresh chain is built per call.
func foldTitle(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// IsValidURL reports whether s parses as an absolute http(s) URL with a host.
//
// The empty string is never valid.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
