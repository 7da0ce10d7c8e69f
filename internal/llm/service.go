// Package llm provides the chat-model client used by the agent loop. All
// supported backends speak the OpenAI chat-completions wire format with
// function tools, so one client covers every provider.
package llm

import "context"

// Message roles understood by the chat backends
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the chat transcript sent to the model
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Tool describes a callable function exposed to the model
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a model-requested invocation of a tool. Arguments holds the
// raw JSON argument object as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Usage reports token counts for one completion. Exact is true when the
// counts came from the provider rather than an estimate.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Exact            bool
}

// Completion is the model's response to one Chat call
type Completion struct {
	Message      Message
	Usage        Usage
	FinishReason string
}

// Service defines the interface for chat-model backends
type Service interface {
	// Chat sends the transcript and tool definitions, returning the
	// model's next message
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Completion, error)

	// Provider returns the backend name for identification
	Provider() string

	// Model returns the configured model name
	Model() string
}
