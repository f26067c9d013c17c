package dispatch

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Bounds for the request-debug summary (SPEC_FULL §4.F, §9), exposed as
// constants so tests can assert against them directly.
const (
	MaxSummaryDepth   = 6
	MaxSummaryKeys    = 60
	MaxSummarySamples = 3
)

// Summarize renders a bounded, type-tagged structural trace of an arbitrary
// JSON-able value, safe to log: no string contents ever appear, only their
// lengths. Used to describe the envelope body of an UpstreamError without
// leaking payload bytes.
func Summarize(v any) any {
	return summarize(v, 0)
}

// SummarizeJSON unmarshals raw JSON and summarizes the result; invalid JSON
// summarizes as a length-tagged opaque string.
func SummarizeJSON(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Sprintf("<string len=%d>", len(raw))
	}
	return Summarize(v)
}

func summarize(v any, depth int) any {
	if depth >= MaxSummaryDepth {
		return "[MaxDepth]"
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return fmt.Sprintf("<string len=%d>", len(val))
	case bool, float64, json.Number:
		return val
	case []any:
		sample := make([]any, 0, MaxSummarySamples)
		for i, elem := range val {
			if i >= MaxSummarySamples {
				break
			}
			sample = append(sample, summarize(elem, depth+1))
		}
		return map[string]any{
			"_type":  "array",
			"length": len(val),
			"sample": sample,
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > MaxSummaryKeys {
			keys = keys[:MaxSummaryKeys]
		}
		fields := make(map[string]any, len(keys))
		for _, k := range keys {
			fields[k] = summarize(val[k], depth+1)
		}
		return map[string]any{
			"_type":   "object",
			"keys":    keys,
			"entries": fields,
		}
	default:
		return fmt.Sprintf("%v", val)
	}
}
