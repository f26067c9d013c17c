// Package translate implements the Request Translator: it orchestrates the
// model mapper, tool name sanitizer, and content extractors to turn one
// client request into an upstream Kiro envelope plus the per-request
// tool-name map.
package translate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"modelgate/internal/content"
	"modelgate/internal/domain"
	"modelgate/internal/toolname"
)

// magic filler strings, isolated per SPEC_FULL §9's open-question decision.
const (
	fillerAcknowledgement = "I will follow these instructions."
	fillerOK              = "OK"
	fillerContinue        = "continue"

	defaultThinkingBudget = 10000
	maxToolDescription    = 10000
)

// Result is the output of one translation: the upstream envelope and the
// per-request bijection from original tool names to sanitized names.
type Result struct {
	Envelope domain.Envelope
	ToolMap  map[string]string
}

// ModelResolver resolves a client model label to an upstream identifier.
// Satisfied by *modelmap.Mapper.
type ModelResolver interface {
	Resolve(clientModel string) (string, error)
}

// Translator turns client requests into upstream envelopes.
type Translator struct {
	models             ModelResolver
	validateToolSchema bool
}

// New creates a Translator bound to a model resolver.
func New(models ModelResolver, validateToolSchema bool) *Translator {
	return &Translator{models: models, validateToolSchema: validateToolSchema}
}

// Translate executes the 13-step translation algorithm (SPEC_FULL §4.D).
// profileArn, when non-empty, is attached to the envelope from the
// credential collaborator bound to the selected account.
func (t *Translator) Translate(req domain.ClientRequest, profileArn string) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, ErrEmptyMessages
	}

	modelID, err := t.models.Resolve(req.Model)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedModel, err)
	}

	windowStart, endsWithAssistant := currentWindow(req.Messages)
	historyEnd := windowStart
	if endsWithAssistant {
		historyEnd = len(req.Messages)
	}

	thinkingPrefix := ""
	if req.ThinkingEnabled() {
		budget := req.Thinking.BudgetTokens
		if budget <= 0 {
			budget = defaultThinkingBudget
		}
		thinkingPrefix = fmt.Sprintf("<thinking_mode>enabled</thinking_mode><max_thinking_length>%d</max_thinking_length>", budget)
	}

	sanitizer := toolname.New()

	var history []domain.HistoryEntry

	systemText := coerceSystemText(req.System)
	switch {
	case systemText != "":
		sysContent := systemText
		if thinkingPrefix != "" && !strings.Contains(sysContent, "<thinking_mode>") && !strings.Contains(sysContent, "<max_thinking_length>") {
			sysContent = thinkingPrefix + "\n" + sysContent
		}
		history = append(history,
			domain.HistoryEntry{UserInputMessage: &domain.UserInputMessage{Content: sysContent, ModelID: modelID, Origin: domain.OriginAIEditor}},
			domain.HistoryEntry{AssistantResponseMessage: &domain.AssistantResponseMessage{Content: fillerAcknowledgement}},
		)
	case thinkingPrefix != "":
		history = append(history,
			domain.HistoryEntry{UserInputMessage: &domain.UserInputMessage{Content: thinkingPrefix, ModelID: modelID, Origin: domain.OriginAIEditor}},
			domain.HistoryEntry{AssistantResponseMessage: &domain.AssistantResponseMessage{Content: fillerAcknowledgement}},
		)
	}

	var buffer []domain.Message
	for i := 0; i < historyEnd; i++ {
		msg := req.Messages[i]
		if msg.Role == domain.RoleUser {
			buffer = append(buffer, msg)
			continue
		}

		if len(buffer) > 0 {
			history = append(history, mergeUserTurn(buffer, modelID))
			buffer = nil
		}

		assistant := content.ExtractAssistantContent(msg.Content, sanitizer)
		entry := domain.AssistantResponseMessage{Content: assistant.Text}
		if len(assistant.ToolUses) > 0 {
			entry.ToolUses = assistant.ToolUses
		}
		history = append(history, domain.HistoryEntry{AssistantResponseMessage: &entry})
	}
	if len(buffer) > 0 {
		history = append(history, mergeUserTurn(buffer, modelID))
		buffer = nil
		history = append(history, domain.HistoryEntry{AssistantResponseMessage: &domain.AssistantResponseMessage{Content: fillerOK}})
	}

	currentContent, currentToolResults := currentMessage(req.Messages, windowStart, endsWithAssistant)

	toolDefs, toolsPresent := buildToolDefinitions(req.Tools, sanitizer, t.validateToolSchema)

	var currentContext *domain.UserInputMessageContext
	if len(toolDefs) > 0 || len(currentToolResults) > 0 {
		currentContext = &domain.UserInputMessageContext{}
		if len(toolDefs) > 0 {
			currentContext.Tools = toolDefs
		}
		if len(currentToolResults) > 0 {
			currentContext.ToolResults = currentToolResults
		}
	}

	chatTriggerType := domain.ChatTriggerManual
	if toolsPresent && req.ToolChoice != nil && (req.ToolChoice.Type == "any" || req.ToolChoice.Type == "tool") {
		chatTriggerType = domain.ChatTriggerAuto
	}

	envelope := domain.Envelope{
		ConversationState: domain.ConversationState{
			ConversationID:      uuid.NewString(),
			AgentContinuationID: uuid.NewString(),
			AgentTaskType:       domain.AgentTaskTypeVibe,
			ChatTriggerType:     chatTriggerType,
			CurrentMessage: domain.HistoryEntry{
				UserInputMessage: &domain.UserInputMessage{
					Content:                 currentContent,
					ModelID:                 modelID,
					Origin:                  domain.OriginAIEditor,
					UserInputMessageContext: currentContext,
				},
			},
			History: history,
		},
	}
	if profileArn != "" {
		envelope.ProfileArn = profileArn
	}

	return Result{Envelope: envelope, ToolMap: sanitizer.NameMap()}, nil
}

// currentWindow returns the start index of the longest all-user suffix of
// messages, and whether the assistant-suffix special case applies.
func currentWindow(messages []domain.Message) (windowStart int, endsWithAssistant bool) {
	i := len(messages)
	for i > 0 && messages[i-1].Role == domain.RoleUser {
		i--
	}
	if i == len(messages) {
		// no trailing user messages at all
		if len(messages) > 0 && messages[len(messages)-1].Role == domain.RoleAssistant {
			return len(messages), true
		}
	}
	return i, false
}

// coerceSystemText renders the polymorphic system field as plain text.
func coerceSystemText(s domain.SystemPrompt) string {
	if !s.IsSet() {
		return ""
	}
	if s.IsText {
		return s.Text
	}
	var parts []string
	for _, b := range s.Blocks {
		if b.Type == domain.BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// mergeUserTurn implements the user-merge rule (SPEC_FULL §4.D step 8) over
// a buffer of consecutive pending user messages.
func mergeUserTurn(buffer []domain.Message, modelID string) domain.HistoryEntry {
	var texts []string
	var results []domain.ToolResult
	for _, msg := range buffer {
		extracted := content.ExtractUserContent(msg.Content)
		if extracted.Text != "" {
			texts = append(texts, extracted.Text)
		}
		results = append(results, extracted.ToolResults...)
	}

	merged := strings.Join(texts, "\n")
	if merged == "" && len(results) > 0 {
		merged = fillerContinue
	}

	uim := &domain.UserInputMessage{Content: merged, ModelID: modelID, Origin: domain.OriginAIEditor}
	if len(results) > 0 {
		uim.UserInputMessageContext = &domain.UserInputMessageContext{ToolResults: results}
	}
	return domain.HistoryEntry{UserInputMessage: uim}
}

// currentMessage builds the content and tool results of the envelope's
// current message (SPEC_FULL §4.D step 9).
func currentMessage(messages []domain.Message, windowStart int, endsWithAssistant bool) (string, []domain.ToolResult) {
	if endsWithAssistant {
		return fillerContinue, nil
	}

	var texts []string
	var results []domain.ToolResult
	for _, msg := range messages[windowStart:] {
		extracted := content.ExtractUserContent(msg.Content)
		if extracted.Text != "" {
			texts = append(texts, extracted.Text)
		}
		results = append(results, extracted.ToolResults...)
	}

	joined := strings.Join(texts, "\n")
	if joined == "" {
		joined = fillerContinue
	}
	return joined, results
}

// buildToolDefinitions filters and sanitizes tool definitions (SPEC_FULL
// §4.D step 10). toolsPresent reports whether the client supplied any
// tools at all, before filtering — used for chatTriggerType.
func buildToolDefinitions(tools []domain.ToolDefinition, sanitizer *toolname.Sanitizer, validateSchema bool) (defs []domain.ToolSpecificationEntry, toolsPresent bool) {
	toolsPresent = len(tools) > 0
	for _, tool := range tools {
		if toolname.UnsupportedTool(tool.Name) {
			continue
		}
		desc := tool.Description
		if len(desc) > maxToolDescription {
			desc = desc[:maxToolDescription]
		}
		defs = append(defs, domain.ToolSpecificationEntry{
			ToolSpecification: domain.ToolSpecification{
				Name:        sanitizer.Sanitize(tool.Name),
				Description: desc,
				InputSchema: domain.InputSchema{JSON: content.CoerceInputSchema(tool.InputSchema, validateSchema)},
			},
		})
	}
	return defs, toolsPresent
}
