package llm

import (
	"time"
)

//----------------------------------------------------------------
// Message - generic conversation message
//----------------------------------------------------------------

// Message represents one conversation message. The same structure is used
// for the in-flight transcript sent to providers and for the durable
// session log on disk.
type Message struct {
	Role      string `json:"role"` // "user", "assistant", "system", "tool"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`

	// ToolCalls holds tool invocation requests produced by the model
	// (only valid when Role is "assistant").
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links this message to the tool call it answers
	// (only valid when Role is "tool").
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName records which tool produced this result (Role "tool").
	ToolName string `json:"tool_name,omitempty"`

	// Metadata carries free-form annotations persisted with the message.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolCall represents a tool invocation request produced by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Function FunctionCall `json:"function"`

	// Meta holds provider-specific payloads (e.g. Gemini function-call
	// echoes). Never serialized, internal hand-off only.
	Meta map[string]any `json:"-"`
}

// FunctionCall carries the concrete tool name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

//----------------------------------------------------------------
// ToolDef - provider-neutral tool descriptor
//----------------------------------------------------------------

// ToolDef describes one callable tool in provider-neutral form.
// Parameters is a full JSON Schema object ("type", "properties", "required").
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// WireFunctions renders tool definitions in the OpenAI-style function wire
// format ({"type":"function","function":{...}}), which is the common
// denominator the provider clients convert from.
func WireFunctions(defs []ToolDef) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Parameters,
			},
		})
	}
	return out
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

// NewTextMessage builds a plain text message with the current timestamp.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:      role,
		Content:   text,
		Timestamp: time.Now().Unix(),
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text)
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(text string) Message {
	return NewTextMessage(RoleAssistant, text)
}

// NewToolMessage builds a tool-result message bound to a tool call.
func NewToolMessage(toolCallID, toolName, text string) Message {
	m := NewTextMessage(RoleTool, text)
	m.ToolCallID = toolCallID
	m.ToolName = toolName
	return m
}
