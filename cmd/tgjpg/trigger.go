package main

import (
	"regexp"
	"strings"
)

// A message is an image request iff the whole trimmed text looks like a
// filename with a recognized image extension. Anything else is normal
// chat and produces no output at all.
var imageQueryRe = regexp.MustCompile(`(?i)^(.+)\.(jpg|jpeg|png|gif)$`)

// parseImageQuery splits a message into the query text (extension
// stripped) and whether the declared format is animated.
func parseImageQuery(text string) (query string, animated bool, ok bool) {
	m := imageQueryRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false, false
	}
	query = strings.TrimSpace(m[1])
	if query == "" {
		return "", false, false
	}
	animated = strings.EqualFold(m[2], "gif")
	return query, animated, true
}
