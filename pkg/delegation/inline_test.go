package delegation

import (
	"context"
	"strings"
	"testing"

	"github.com/dreamteam-ai/dispatch/pkg/config"
	"github.com/dreamteam-ai/dispatch/pkg/providers"
	"github.com/dreamteam-ai/dispatch/pkg/team"
	"github.com/dreamteam-ai/dispatch/pkg/tools"
)

// scriptedProvider replays a fixed sequence of responses, streaming each
// response's content through OnDelta the way a real provider would.
type scriptedProvider struct {
	responses []*providers.LLMResponse
	calls     int
	seenTools [][]providers.ToolDefinition
	seenMsgs  [][]providers.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []providers.Message, toolDefs []providers.ToolDefinition, model string, options map[string]any) (*providers.LLMResponse, error) {
	return p.ChatStream(ctx, messages, toolDefs, model, options, providers.StreamEvents{})
}

func (p *scriptedProvider) ChatStream(_ context.Context, messages []providers.Message, toolDefs []providers.ToolDefinition, _ string, _ map[string]any, events providers.StreamEvents) (*providers.LLMResponse, error) {
	if p.calls >= len(p.responses) {
		panic("scriptedProvider: no response scripted for call")
	}
	resp := p.responses[p.calls]
	p.calls++
	p.seenTools = append(p.seenTools, toolDefs)
	p.seenMsgs = append(p.seenMsgs, messages)

	if events.OnUsage != nil {
		// Interim figure that must not leak into the aggregated usage.
		events.OnUsage(providers.UsageInfo{OutputTokens: 999})
	}
	if events.OnDelta != nil && len(resp.ToolCalls) == 0 {
		for _, chunk := range splitChunks(resp.Content) {
			events.OnDelta(chunk)
		}
	}
	return resp, nil
}

func (p *scriptedProvider) GetDefaultModel() string { return "sonnet" }

func splitChunks(s string) []string {
	if len(s) <= 4 {
		return []string{s}
	}
	return []string{s[:4], s[4:]}
}

type echoTool struct{ scopes []tools.Scope }

func (e *echoTool) Name() string               { return "web_search" }
func (e *echoTool) Description() string        { return "search" }
func (e *echoTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (e *echoTool) Execute(_ context.Context, scope tools.Scope, _ map[string]any) *tools.ToolResult {
	e.scopes = append(e.scopes, scope)
	return tools.NewToolResult("search results")
}

func inlineFixture(provider providers.LLMProvider, registry *tools.Registry) (*InlineExecutor, *team.Snapshot) {
	factory := providers.NewFactoryWithProviders(provider, provider)
	exec := NewInlineExecutor(factory, registry, config.DelegationConfig{
		MaxTurns:  3,
		MaxTokens: 4096,
	})
	snap := &team.Snapshot{
		WorkspaceID: "ws-1",
		Agents: []team.AgentConfig{
			{
				Slug:         "researcher",
				Name:         "Researcher",
				SystemPrompt: "You research things.",
				Model:        "sonnet",
				Tools:        []string{"web_search", tools.DelegateToolName},
				Enabled:      true,
			},
		},
	}
	return exec, snap
}

func TestInlineCapsClampUpwardOnly(t *testing.T) {
	factory := providers.NewFactoryWithProviders(&scriptedProvider{}, &scriptedProvider{})

	// Config can tighten the sub-session bounds but never widen them.
	wide := NewInlineExecutor(factory, tools.NewRegistry(), config.DelegationConfig{
		MaxTurns:             24,
		ThinkingBudgetTokens: 16384,
	})
	if wide.maxTurns != 8 {
		t.Errorf("maxTurns = %d, want clamped to 8", wide.maxTurns)
	}
	if wide.thinkingBudget != 4096 {
		t.Errorf("thinkingBudget = %d, want clamped to 4096", wide.thinkingBudget)
	}

	narrow := NewInlineExecutor(factory, tools.NewRegistry(), config.DelegationConfig{
		MaxTurns:             2,
		ThinkingBudgetTokens: 1024,
	})
	if narrow.maxTurns != 2 || narrow.thinkingBudget != 1024 {
		t.Errorf("narrow config must be kept, got turns=%d budget=%d", narrow.maxTurns, narrow.thinkingBudget)
	}
}

func TestInlineExecuteAgentNotFound(t *testing.T) {
	provider := &scriptedProvider{}
	exec, snap := inlineFixture(provider, tools.NewRegistry())

	result := exec.Execute(context.Background(), snap, Input{AgentSlug: "ghost", Task: "x"}, Session{WorkspaceID: "ws-1"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != `Agent "ghost" not found or is disabled` {
		t.Errorf("error = %q", result.Error)
	}
	if result.AgentSlug != "ghost" || result.AgentName != "" {
		t.Errorf("identity fields = %q/%q", result.AgentName, result.AgentSlug)
	}
	if provider.calls != 0 {
		t.Errorf("provider must not be invoked, got %d calls", provider.calls)
	}
}

func TestInlineExecuteSuccess(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			{Content: "Here is your answer.", Usage: &providers.UsageInfo{InputTokens: 50, OutputTokens: 20}},
		},
	}
	exec, snap := inlineFixture(provider, tools.NewRegistry())

	result := exec.Execute(context.Background(), snap,
		Input{AgentSlug: "researcher", Task: "find papers", Context: "biology"},
		Session{WorkspaceID: "ws-1", UserID: "u-1"})

	if !result.Success {
		t.Fatalf("failure: %s", result.Error)
	}
	if result.Response != "Here is your answer." {
		t.Errorf("response = %q", result.Response)
	}
	if result.AgentName != "Researcher" || result.AgentSlug != "researcher" {
		t.Errorf("identity = %q/%q", result.AgentName, result.AgentSlug)
	}
	if result.Usage == nil || result.Usage.InputTokens != 50 || result.Usage.OutputTokens != 20 {
		t.Errorf("usage = %+v", result.Usage)
	}

	msgs := provider.seenMsgs[0]
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "You research things.") {
		t.Error("system prompt must carry the agent base prompt")
	}
	if !strings.Contains(msgs[1].Content, "find papers") {
		t.Error("user message must carry the task")
	}
}

func TestInlineTerminalUsageWins(t *testing.T) {
	// The scripted provider fires an interim OnUsage of 999 on every call;
	// only the terminal usage may be aggregated.
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			{Content: "done", Usage: &providers.UsageInfo{InputTokens: 13, OutputTokens: 7}},
		},
	}
	exec, snap := inlineFixture(provider, tools.NewRegistry())

	result := exec.Execute(context.Background(), snap,
		Input{AgentSlug: "researcher", Task: "t"}, Session{WorkspaceID: "ws-1"})

	if !result.Success {
		t.Fatalf("failure: %s", result.Error)
	}
	if result.Usage.InputTokens != 13 || result.Usage.OutputTokens != 7 {
		t.Errorf("usage = %+v, want {13 7}", result.Usage)
	}
}

func TestInlineDelegationToolsNeverExposed(t *testing.T) {
	registry := tools.NewRegistry()
	search := &echoTool{}
	registry.Register(search)
	registry.Register(tools.NewDelegateTool(nil))

	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{{Content: "ok"}},
	}
	exec, snap := inlineFixture(provider, registry)

	result := exec.Execute(context.Background(), snap,
		Input{AgentSlug: "researcher", Task: "t"}, Session{WorkspaceID: "ws-1"})
	if !result.Success {
		t.Fatalf("failure: %s", result.Error)
	}

	// The agent allow-lists delegate_task, but the sub-session must not see it.
	for _, def := range provider.seenTools[0] {
		if def.Function.Name == tools.DelegateToolName || def.Function.Name == tools.OrchestrateToolName {
			t.Fatalf("delegation tool %q exposed to delegated session", def.Function.Name)
		}
	}
	if len(provider.seenTools[0]) != 1 || provider.seenTools[0][0].Function.Name != "web_search" {
		t.Errorf("tool defs = %+v", provider.seenTools[0])
	}
}

func TestInlineToolLoop(t *testing.T) {
	registry := tools.NewRegistry()
	search := &echoTool{}
	registry.Register(search)

	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			{
				ToolCalls: []providers.ToolCall{
					{ID: "call-1", Name: "web_search", Arguments: map[string]any{"q": "cells"}},
				},
				Usage: &providers.UsageInfo{InputTokens: 10, OutputTokens: 4},
			},
			{Content: "final answer", Usage: &providers.UsageInfo{InputTokens: 30, OutputTokens: 6}},
		},
	}
	exec, snap := inlineFixture(provider, registry)

	result := exec.Execute(context.Background(), snap,
		Input{AgentSlug: "researcher", Task: "t"},
		Session{WorkspaceID: "ws-1", UserID: "u-9"})

	if !result.Success {
		t.Fatalf("failure: %s", result.Error)
	}
	if result.Response != "final answer" {
		t.Errorf("response = %q", result.Response)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d", provider.calls)
	}
	if result.Usage.InputTokens != 40 || result.Usage.OutputTokens != 10 {
		t.Errorf("usage = %+v", result.Usage)
	}

	if len(search.scopes) != 1 {
		t.Fatalf("tool executions = %d", len(search.scopes))
	}
	if search.scopes[0].WorkspaceID != "ws-1" || search.scopes[0].UserID != "u-9" {
		t.Errorf("tool scope = %+v", search.scopes[0])
	}

	// The second call must see the tool result message.
	second := provider.seenMsgs[1]
	last := second[len(second)-1]
	if last.Role != "tool" || last.Content != "search results" || last.ToolCallID != "call-1" {
		t.Errorf("tool message = %+v", last)
	}
}

func TestInlineTurnCapExceeded(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&echoTool{})

	loop := &providers.LLMResponse{
		ToolCalls: []providers.ToolCall{{ID: "c", Name: "web_search"}},
	}
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{loop, loop, loop},
	}
	exec, snap := inlineFixture(provider, registry)

	result := exec.Execute(context.Background(), snap,
		Input{AgentSlug: "researcher", Task: "t"}, Session{WorkspaceID: "ws-1"})

	if result.Success {
		t.Fatal("expected failure after exceeding the turn cap")
	}
	if !strings.Contains(result.Error, "exceeded 3 turns") {
		t.Errorf("error = %q", result.Error)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d", provider.calls)
	}
}
