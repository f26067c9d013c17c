// Package modelmap resolves a client-supplied model label to an upstream
// Kiro model identifier.
package modelmap

import (
	"errors"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrUnsupportedModel is returned when no rule, fallback, or fuzzy match
// resolves a model label.
var ErrUnsupportedModel = errors.New("modelmap: unsupported model")

// MatchType is the kind of comparison a Rule performs against a client
// model label.
type MatchType string

const (
	MatchContains MatchType = "contains"
	MatchExact    MatchType = "exact"
	MatchPrefix   MatchType = "prefix"
)

// Rule is one entry of the external rule table.
type Rule struct {
	Pattern    string
	InternalID string
	MatchType  MatchType
	Priority   int
	Enabled    bool
}

func (r Rule) matches(lowered string) bool {
	if !r.Enabled {
		return false
	}
	pattern := strings.ToLower(r.Pattern)
	switch r.MatchType {
	case MatchExact:
		return lowered == pattern
	case MatchPrefix:
		return strings.HasPrefix(lowered, pattern)
	case MatchContains, "":
		return strings.Contains(lowered, pattern)
	default:
		return false
	}
}

// builtinFallback is checked in this fixed order when no rule table is
// bound (or none of its rules match); the order is itself the documented
// answer to the spec's open question about substring precedence.
var builtinFallback = []struct {
	substring  string
	internalID string
}{
	{"sonnet", "CLAUDE_3_7_SONNET_20250219_V1_0"},
	{"opus", "CLAUDE_3_OPUS_20240229_V1_0"},
	{"haiku", "CLAUDE_3_5_HAIKU_20241022_V1_0"},
}

// Mapper resolves client model labels, optionally consulting an external
// rule table before falling back to the built-in substring table and a
// levenshtein nearest-match against the rule table's patterns.
type Mapper struct {
	rules []Rule
}

// New creates a Mapper. rules may be nil, in which case only the built-in
// fallback is used.
func New(rules []Rule) *Mapper {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return &Mapper{rules: sorted}
}

// Resolve maps a client model label to an upstream model identifier.
func (m *Mapper) Resolve(clientModel string) (string, error) {
	lowered := strings.ToLower(clientModel)

	for _, rule := range m.rules {
		if rule.matches(lowered) {
			return rule.InternalID, nil
		}
	}

	for _, f := range builtinFallback {
		if strings.Contains(lowered, f.substring) {
			return f.internalID, nil
		}
	}

	if id, ok := m.nearestRuleMatch(lowered); ok {
		return id, nil
	}

	return "", ErrUnsupportedModel
}

// nearestRuleMatch tolerates minor client-side typos in the model label by
// picking the rule whose pattern has the smallest edit distance to the
// label, provided it is close enough to be a plausible fat-finger rather
// than an unrelated model family.
func (m *Mapper) nearestRuleMatch(lowered string) (string, bool) {
	const maxDistance = 3

	best := -1
	bestDist := maxDistance + 1
	for i, rule := range m.rules {
		if !rule.Enabled {
			continue
		}
		dist := levenshtein.ComputeDistance(lowered, strings.ToLower(rule.Pattern))
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return m.rules[best].InternalID, true
}
