package corpus

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes free text for matching: lowercase, letters and
// digits and whitespace only, whitespace runs collapsed to single spaces,
// trimmed. Idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
