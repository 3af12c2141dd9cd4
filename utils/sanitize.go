package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// maxSanitizePasses bounds the strip/unescape loop for nested entity encodings.
const maxSanitizePasses = 3

// Sanitize reduces model output to plain text for JSON responses: tags are removed
// and entities decoded, so "A &amp; B" and "A & B" both come back as "A & B".
// Markup hidden behind entities ("&lt;b&gt;") is stripped on the next pass.
// Clients must still render the result as text, not HTML.
func Sanitize(input string) string {
	out := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}
