// Package textutil provides the slug and truncation helpers used when
// creating articles and composing notifications.
package textutil

import (
	"regexp"
	"strings"
)

var (
	invalidSlugChars = regexp.MustCompile(`[^a-z0-9 -]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	dashRuns         = regexp.MustCompile(`-+`)
)

// accent folding table, ñ to n etc.
var slugReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "ä", "a", "â", "a",
	"è", "e", "é", "e", "ë", "e", "ê", "e",
	"ì", "i", "í", "i", "ï", "i", "î", "i",
	"ò", "o", "ó", "o", "ö", "o", "ô", "o",
	"ù", "u", "ú", "u", "ü", "u", "û", "u",
	"ñ", "n", "ç", "c",
	"·", "-", "/", "-", "_", "-", ",", "-", ":", "-", ";", "-",
)

// Slugify converts a title into a URL-safe slug: lowercased, accents
// folded, invalid characters removed, whitespace and dash runs collapsed.
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = slugReplacer.Replace(s)
	s = invalidSlugChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")

	return s
}

// Truncate shortens s to at most n characters. Strings within the limit are
// returned unchanged; otherwise the first n-1 characters are cut back to the
// last word boundary and terminated with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	if n <= 1 {
		return "…"
	}

	sub := runes[:n-1]

	cut := len(sub) - 1
	for i := len(sub) - 1; i >= 0; i-- {
		if sub[i] == ' ' {
			cut = i
			break
		}
	}

	return string(sub[:cut]) + "…"
}
