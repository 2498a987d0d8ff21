package scorer

import (
	"regexp"
	"strings"
)

// Models often wrap JSON in a markdown fence even when told not to.
var fencedJSON = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n?\\s*```")

// jsonCandidates lists the possible JSON objects in a model reply, best
// first: the body of a ```json fence, then every balanced {...} span in the
// order its opening brace appears. Prose can contain braces of its own, so
// callers try each candidate until one decodes.
func jsonCandidates(text string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := balancedEnd(text, start); ok {
			out = append(out, text[start:end])
		}
	}
	return out
}

// balancedEnd returns the index just past the brace closing the object that
// opens at text[start].
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
