package content

import (
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
)

var emptySchemaObject = json.RawMessage("{}")

// CoerceInputSchema reduces a tool definition's input_schema to a JSON
// object the same way coerceJSONObject does, then — if validate is true —
// checks that it is at least a syntactically well-formed JSON Schema
// document. A malformed schema is logged and treated as absent rather than
// failing the whole translation (extractors stay total, SPEC_FULL §9).
func CoerceInputSchema(raw json.RawMessage, validate bool) json.RawMessage {
	obj := coerceJSONObject(raw)
	if !validate {
		return obj
	}

	loader := gojsonschema.NewBytesLoader(obj)
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		slog.Warn("tool input_schema failed validation, treating as empty", "error", err)
		return emptySchemaObject
	}
	return obj
}
