package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var brReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

// stripHTML flattens an HTML fragment (board comments, tweet bodies) to
// plain text. On parse failure the fragment is returned untouched rather
// than dropped.
func stripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(brReplacer.Replace(fragment)))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}

// matchesAny reports whether any keyword occurs in text as a
// case-insensitive substring. Keywords are expected pre-lowercased.
func matchesAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// lowerAll trims and lowercases a keyword list, dropping empties.
func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// truncateRunes shortens s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
