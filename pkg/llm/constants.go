package llm

// Role constants define the normalized message roles used throughout the
// message pipeline and the session log.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// StopReason constants define normalized reasons for LLM generation
// termination. All providers must normalize their native stop reasons
// to these values.
const (
	StopReasonStop    = "stop"     // Normal completion
	StopReasonLength  = "length"   // Output truncated due to token limit
	StopReasonToolUse = "tool_use" // Model requested tool execution
)
