// Package toolname rewrites arbitrary client tool names into the
// identifier-restricted namespace the upstream requires, preserving a
// per-request bijection so tool-use events can be translated back.
package toolname

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer assigns each original tool name seen in a request a unique,
// identifier-safe name. It is not safe for concurrent use; callers create
// one per request.
type Sanitizer struct {
	assigned map[string]string // original -> sanitized
	used     map[string]bool   // sanitized names already handed out
}

// New creates an empty, per-request Sanitizer.
func New() *Sanitizer {
	return &Sanitizer{
		assigned: make(map[string]string),
		used:     make(map[string]bool),
	}
}

// Sanitize returns the upstream-safe name for an original tool name. Calling
// it more than once for the same original name returns the same result
// (idempotent within one Sanitizer).
func (s *Sanitizer) Sanitize(original string) string {
	if existing, ok := s.assigned[original]; ok {
		return existing
	}

	base := sanitizeBase(original)
	candidate := base
	for n := 2; s.used[candidate]; n++ {
		candidate = base + suffixFor(n)
	}

	s.used[candidate] = true
	s.assigned[original] = candidate
	return candidate
}

// NameMap returns the accumulated original->sanitized bijection.
func (s *Sanitizer) NameMap() map[string]string {
	out := make(map[string]string, len(s.assigned))
	for k, v := range s.assigned {
		out[k] = v
	}
	return out
}

func suffixFor(n int) string {
	return "_" + strconv.Itoa(n)
}

var foldNonASCII = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

func sanitizeBase(name string) string {
	folded, _, err := transform.String(foldNonASCII, name)
	if err != nil || folded == "" {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastUnderscore := false
	for _, r := range folded {
		var out rune
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			out = r
		default:
			out = '_'
		}
		if out == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(out)
	}

	result := strings.Trim(b.String(), "_")
	if result == "" {
		return "tool"
	}
	if result[0] >= '0' && result[0] <= '9' {
		result = "t_" + result
	}
	return result
}

// UnsupportedTool reports whether a tool's name is in the permanently-
// filtered set (dropped from definitions and assistant tool-use blocks,
// but not from user tool-results — see §9 design notes). The comparison
// is made against the sanitized form of the name, so names that merely
// punctuate "web search" (e.g. "web.search!") are caught as well as the
// literal "web_search"/"websearch".
func UnsupportedTool(name string) bool {
	lowered := strings.ToLower(sanitizeBase(name))
	return lowered == "web_search" || lowered == "websearch"
}
