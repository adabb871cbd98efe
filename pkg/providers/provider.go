package providers

import "context"

// LLMProvider is the execution engine contract. ChatStream behaves like Chat
// but delivers text fragments and interim usage through events as they
// arrive, returning the fully accumulated response at the end.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error)
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any, events StreamEvents) (*LLMResponse, error)
	GetDefaultModel() string
}
