package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleSystem represents system-level instructions or context.
	RoleSystem Role = "system"

	// RoleUser represents messages from the user.
	RoleUser Role = "user"

	// RoleAssistant represents messages from the AI assistant.
	RoleAssistant Role = "assistant"

	// RoleTool represents tool execution results.
	RoleTool Role = "tool"
)

// Message represents a single message in a conversation. Messages are
// immutable once appended to the history; the history itself is an
// append-only ordered sequence.
type Message struct {
	// Role indicates who sent the message.
	Role Role `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations requested by the assistant.
	// Only valid when Role is RoleAssistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Sender is the name of the agent that produced this message.
	// Only valid when Role is RoleAssistant.
	Sender string `json:"sender,omitempty"`

	// ToolCallID matches the ID of the tool call this message answers.
	// Only valid when Role is RoleTool.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName identifies the tool that produced this message.
	// Only valid when Role is RoleTool.
	ToolName string `json:"tool_name,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message attributed to a sender agent.
func AssistantMessage(sender, content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Sender: sender, Content: content, ToolCalls: calls}
}

// ToolMessage builds a tool-result message threaded to a tool call.
func ToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: toolName, Content: content}
}

// IsValid validates that the message has appropriate fields set for its role.
func (m Message) IsValid() bool {
	switch m.Role {
	case RoleSystem, RoleUser:
		return m.Content != "" && len(m.ToolCalls) == 0 && m.ToolCallID == ""
	case RoleAssistant:
		// Assistant can have content, tool calls, or both.
		return m.Content != "" || len(m.ToolCalls) > 0
	case RoleTool:
		return m.ToolCallID != "" && m.ToolName != ""
	default:
		return false
	}
}

// String returns a string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// LastToolContent returns the content of the most recent tool-result message
// in the history, or "" if no tool result has been appended yet. The flag
// detection policy inspects this value after each turn.
func LastToolContent(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleTool {
			return history[i].Content
		}
	}
	return ""
}
