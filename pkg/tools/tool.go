package tools

import "context"

// Scope identifies the workspace and user a tool call executes under.
// Tool access is scoped at invocation time, not at agent-definition time.
type Scope struct {
	WorkspaceID string
	UserID      string
}

type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, scope Scope, args map[string]any) *ToolResult
}

type ToolResult struct {
	ForLLM  string
	IsError bool
	Err     error
}

func NewToolResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM}
}

func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, IsError: true}
}

func (r *ToolResult) WithError(err error) *ToolResult {
	r.Err = err
	r.IsError = true
	return r
}
