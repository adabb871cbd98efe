package tools

import (
	"context"
	"fmt"
	"strings"
)

// DelegateToolName triggers a delegation when called by the head agent.
// OrchestrateToolName is the top-level task-orchestration tool.
const (
	DelegateToolName    = "delegate_task"
	OrchestrateToolName = "orchestrate_tasks"
)

// DisallowedForDelegation returns the tool names a delegated agent must
// never see. A delegated agent that could delegate again would allow
// unbounded delegation chains.
func DisallowedForDelegation() []string {
	return []string{DelegateToolName, OrchestrateToolName}
}

// DelegateRequest is the parsed input of a delegate tool call.
type DelegateRequest struct {
	AgentSlug string
	Task      string
	Context   string
}

// DelegateFunc runs the delegation and returns the text relayed back into
// the head agent's context.
type DelegateFunc func(ctx context.Context, scope Scope, req DelegateRequest) (string, error)

// DelegateTool is the head-agent-side trigger. It never reaches a delegated
// session: every executor strips it from the sub-session's tool set.
type DelegateTool struct {
	run DelegateFunc
}

func NewDelegateTool(run DelegateFunc) *DelegateTool {
	return &DelegateTool{run: run}
}

func (t *DelegateTool) Name() string {
	return DelegateToolName
}

func (t *DelegateTool) Description() string {
	return "Delegate a focused task to a specialist agent on your team. Provide the specialist's slug, a complete task description, and any conversation context the specialist will need. The specialist's response is visible only to you; relay whatever the user needs in your own reply."
}

func (t *DelegateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_slug": map[string]any{
				"type":        "string",
				"description": "Slug of the specialist agent to delegate to",
			},
			"task": map[string]any{
				"type":        "string",
				"description": "Complete description of the task to complete",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "Relevant context from the current conversation (optional)",
			},
		},
		"required": []any{"agent_slug", "task"},
	}
}

func (t *DelegateTool) Execute(ctx context.Context, scope Scope, args map[string]any) *ToolResult {
	slug, _ := args["agent_slug"].(string)
	task, _ := args["task"].(string)
	taskContext, _ := args["context"].(string)

	if strings.TrimSpace(slug) == "" {
		return ErrorResult("agent_slug is required").WithError(fmt.Errorf("agent_slug parameter is required"))
	}
	if strings.TrimSpace(task) == "" {
		return ErrorResult("task is required").WithError(fmt.Errorf("task parameter is required"))
	}
	if t.run == nil {
		return ErrorResult("delegation is not configured").WithError(fmt.Errorf("delegate runner is nil"))
	}

	response, err := t.run(ctx, scope, DelegateRequest{
		AgentSlug: slug,
		Task:      task,
		Context:   taskContext,
	})
	if err != nil {
		return ErrorResult(fmt.Sprintf("Delegation failed: %v", err)).WithError(err)
	}
	return NewToolResult(response)
}
