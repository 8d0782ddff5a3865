package oracle

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a gateway conversation.
type ChatMessage struct {
	Role    Role
	Content string
}

// ToolSchema describes one capability exposed to the model as a callable
// tool. JSONSchema is the raw parameter schema.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string
}

// ToolCall is a tool invocation returned by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ChatResponse is the model's reply: free text, tool calls, or both.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatOptions carries per-request tuning.
type ChatOptions struct {
	MaxOutputTokens int
	Temperature     float32
}

// Client is the provider-neutral surface the gateway talks through.
// Implemented by OpenAIClient and AnthropicClient.
type Client interface {
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolSchema, opts ChatOptions) (ChatResponse, error)
}
