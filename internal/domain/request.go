// Package domain holds the data model shared by the translator, pool, and
// dispatcher: the client-facing request shape and the upstream Kiro
// envelope it is translated into.
package domain

import (
	"encoding/json"
	"fmt"
)

// Role is a message's speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlockType tags the variant of a ContentBlock.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockThinking   ContentBlockType = "thinking"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
)

// ContentBlock is one element of a message's content array. Only the fields
// relevant to its Type are populated; extractors are total functions over
// this type and never fail on an unexpected shape.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// MessageContent is the polymorphic "content" field: either a plain string
// or an ordered sequence of ContentBlock. Exactly one of the two accessors
// is meaningful, disambiguated by IsText.
type MessageContent struct {
	IsText bool
	Text   string
	Blocks []ContentBlock
}

// UnmarshalJSON accepts either a JSON string or a JSON array of blocks.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.IsText = true
		c.Text = s
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("message content is neither a string nor a block array: %w", err)
	}
	c.IsText = false
	c.Blocks = blocks
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// Message is one turn in the client conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// SystemPrompt is the polymorphic "system" field: a plain string or an
// ordered sequence of text blocks.
type SystemPrompt struct {
	set    bool
	IsText bool
	Text   string
	Blocks []ContentBlock
}

func (s SystemPrompt) IsSet() bool { return s.set }

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	s.set = true

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.IsText = true
		s.Text = str
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("system prompt is neither a string nor a block array: %w", err)
	}
	s.Blocks = blocks
	return nil
}

// Thinking requests chain-of-thought expansion from the upstream model.
type Thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// ToolChoice steers whether and how the model must call a tool.
type ToolChoice struct {
	Type string `json:"type"`
}

// ToolDefinition is a tool the client makes available to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ClientRequest is the Anthropic-style chat-completion request the gateway
// accepts.
type ClientRequest struct {
	Model      string           `json:"model"`
	System     SystemPrompt     `json:"system,omitempty"`
	Messages   []Message        `json:"messages"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice *ToolChoice      `json:"tool_choice,omitempty"`
	Thinking   *Thinking        `json:"thinking,omitempty"`
}

// ThinkingEnabled reports whether extended thinking was requested.
func (r *ClientRequest) ThinkingEnabled() bool {
	return r.Thinking != nil && r.Thinking.Type == "enabled"
}
