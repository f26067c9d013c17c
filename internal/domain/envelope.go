package domain

import "encoding/json"

// Envelope is the upstream conversationState record posted to Kiro.
type Envelope struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
}

// ConversationState is the body of one Kiro request.
type ConversationState struct {
	ConversationID       string         `json:"conversationId"`
	AgentContinuationID  string         `json:"agentContinuationId"`
	AgentTaskType        string         `json:"agentTaskType"`
	ChatTriggerType      string         `json:"chatTriggerType"`
	CurrentMessage       HistoryEntry   `json:"currentMessage"`
	History              []HistoryEntry `json:"history"`
}

const AgentTaskTypeVibe = "vibe"

const (
	ChatTriggerManual = "MANUAL"
	ChatTriggerAuto   = "AUTO"
)

// HistoryEntry is one turn of conversationState.history, or the current
// message: exactly one of its two fields is populated.
type HistoryEntry struct {
	UserInputMessage         *UserInputMessage         `json:"userInputMessage,omitempty"`
	AssistantResponseMessage *AssistantResponseMessage `json:"assistantResponseMessage,omitempty"`
}

// UserInputMessage is a user turn in the upstream wire format.
type UserInputMessage struct {
	Content                 string                   `json:"content"`
	ModelID                 string                   `json:"modelId"`
	Origin                  string                   `json:"origin"`
	UserInputMessageContext *UserInputMessageContext `json:"userInputMessageContext,omitempty"`
}

const OriginAIEditor = "AI_EDITOR"

// UserInputMessageContext attaches tool definitions and/or tool results to
// a user turn.
type UserInputMessageContext struct {
	Tools       []ToolSpecificationEntry `json:"tools,omitempty"`
	ToolResults []ToolResult             `json:"toolResults,omitempty"`
}

func (c *UserInputMessageContext) IsEmpty() bool {
	return c == nil || (len(c.Tools) == 0 && len(c.ToolResults) == 0)
}

// ToolSpecificationEntry wraps a single tool definition as the upstream
// expects it nested.
type ToolSpecificationEntry struct {
	ToolSpecification ToolSpecification `json:"toolSpecification"`
}

// ToolSpecification is one tool definition in upstream shape.
type ToolSpecification struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema wraps a tool's JSON Schema under the "json" key the upstream
// expects.
type InputSchema struct {
	JSON json.RawMessage `json:"json"`
}

// AssistantResponseMessage is an assistant turn in the upstream wire format.
type AssistantResponseMessage struct {
	Content  string    `json:"content"`
	ToolUses []ToolUse `json:"toolUses,omitempty"`
}

// ToolUse is one tool invocation emitted by the assistant.
type ToolUse struct {
	ToolUseID string          `json:"toolUseId"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// ToolResultStatus is the outcome of a tool invocation as reported back.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// ToolResult is the upstream shape for a client-supplied tool result.
type ToolResult struct {
	ToolUseID string           `json:"toolUseId"`
	Status    ToolResultStatus `json:"status"`
	Content   []TextBlock      `json:"content"`
}

// TextBlock is a single-field text wrapper used inside ToolResult.Content.
type TextBlock struct {
	Text string `json:"text"`
}
