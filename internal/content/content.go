// Package content implements the translator's total content extractors:
// pulling normalized text and tool-use/tool-result side channels out of a
// message's polymorphic content field. None of these functions fail; an
// unrecognized shape degrades to the empty string or an empty object,
// matching observed upstream tolerance (SPEC_FULL §9).
package content

import (
	"encoding/json"
	"strings"

	"modelgate/internal/domain"
	"modelgate/internal/toolname"
)

// ExtractText renders a message content field as plain text: a string
// passes through; an array is filtered to text blocks and joined with "\n";
// anything else yields "".
func ExtractText(c domain.MessageContent) string {
	if c.IsText {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == domain.BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// UserContent is the result of extracting a user message's content.
type UserContent struct {
	Text        string
	ToolResults []domain.ToolResult
}

// ExtractUserContent extracts normalized text and any tool results from a
// user message's content.
func ExtractUserContent(c domain.MessageContent) UserContent {
	if c.IsText {
		return UserContent{Text: c.Text}
	}

	var textParts []string
	var results []domain.ToolResult
	for _, b := range c.Blocks {
		switch b.Type {
		case domain.BlockText:
			textParts = append(textParts, b.Text)
		case domain.BlockToolResult:
			status := domain.ToolResultSuccess
			if b.IsError {
				status = domain.ToolResultError
			}
			results = append(results, domain.ToolResult{
				ToolUseID: b.ToolUseID,
				Status:    status,
				Content:   []domain.TextBlock{{Text: coerceToolResultText(b.Content)}},
			})
		}
	}

	return UserContent{Text: strings.Join(textParts, "\n"), ToolResults: results}
}

// coerceToolResultText reduces a tool_result block's polymorphic content
// field to a single string: a JSON string passes through, an array of text
// blocks is joined with "\n", anything else yields "".
func coerceToolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []domain.ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == domain.BlockText {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

// AssistantContent is the result of extracting an assistant message's
// content.
type AssistantContent struct {
	Text     string
	ToolUses []domain.ToolUse
}

const fillerOK = "OK"

// ExtractAssistantContent extracts normalized text (with thinking-block
// formatting) and any tool uses from an assistant message's content. A
// sanitizer assigns upstream-safe names to tool_use blocks; tools matching
// the unsupported-tool filter are dropped entirely.
func ExtractAssistantContent(c domain.MessageContent, sanitizer *toolname.Sanitizer) AssistantContent {
	if c.IsText {
		return AssistantContent{Text: c.Text}
	}

	var thinkingParts []string
	var textParts []string
	var toolUses []domain.ToolUse

	for _, b := range c.Blocks {
		switch b.Type {
		case domain.BlockThinking:
			thinkingParts = append(thinkingParts, b.Thinking)
		case domain.BlockText:
			textParts = append(textParts, b.Text)
		case domain.BlockToolUse:
			if toolname.UnsupportedTool(b.Name) {
				continue
			}
			toolUses = append(toolUses, domain.ToolUse{
				ToolUseID: b.ID,
				Name:      sanitizer.Sanitize(b.Name),
				Input:     coerceJSONObject(b.Input),
			})
		}
	}

	thinking := strings.Join(thinkingParts, "")
	textJoined := strings.Join(textParts, "\n")

	var text string
	switch {
	case thinking != "" && textJoined != "":
		text = "<thinking>" + thinking + "</thinking>\n\n" + textJoined
	case thinking != "" && textJoined == "":
		text = "<thinking>" + thinking + "</thinking>"
	default:
		text = textJoined
	}

	if text == "" && len(toolUses) > 0 {
		text = fillerOK
	}

	return AssistantContent{Text: text, ToolUses: toolUses}
}

var emptyObject = json.RawMessage("{}")

// coerceJSONObject reduces an arbitrary JSON value to a JSON object: a
// string is parsed as JSON (failure -> empty object); an object passes
// through; anything else (array, scalar, null, absent) -> empty object.
func coerceJSONObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyObject
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var obj map[string]any
		if err := json.Unmarshal([]byte(asString), &obj); err != nil || obj == nil {
			return emptyObject
		}
		reencoded, err := json.Marshal(obj)
		if err != nil {
			return emptyObject
		}
		return reencoded
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return emptyObject
	}
	return raw
}
