// Package htmlsanitize cleans text produced by external services before it
// is stored and later rendered by the web front end.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element and attribute. Policies are safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding PlainText unwraps.
const maxPasses = 4

// PlainText strips all HTML markup from s and returns trimmed plain text.
// Entities escaped by the sanitizer are decoded again so accents and quotes
// are stored as typed. Decoding can surface markup that was entity-encoded
// in s, so the text is sanitized again until it stops changing. If it has
// not settled after maxPasses, the still-escaped form is returned.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	cur := s
	for i := 0; i < maxPasses; i++ {
		clean := strict.Sanitize(cur)
		next := html.UnescapeString(clean)
		if next == cur {
			return strings.TrimSpace(next)
		}
		cur = next
	}
	return strings.TrimSpace(strict.Sanitize(cur))
}
