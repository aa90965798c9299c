// Package htmlsanitize strips markup from user-supplied text before it is
// stored or rendered into feeds.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute. bluemonday policies are safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// StripTags removes all HTML from s and returns plain text with entities
// decoded, trimmed of surrounding whitespace.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no HTML tags.
func IsPlainText(s string) bool {
	if s == "" {
		return true
	}
	return strict.Sanitize(s) == html.EscapeString(s)
}
