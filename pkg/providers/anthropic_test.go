package providers

import "testing"

func thinkingTestMessages() []Message {
	return []Message{
		{Role: "system", Content: "You research things."},
		{Role: "user", Content: "find papers"},
	}
}

func TestBuildAnthropicParamsThinkingBudgetBelowMaxTokens(t *testing.T) {
	// Default delegation config asks for a 4096 budget against 4096 max
	// tokens; the API requires budget < max_tokens.
	params, err := buildAnthropicParams(thinkingTestMessages(), nil, "sonnet", map[string]any{
		"max_tokens":      4096,
		"thinking_budget": 4096,
	})
	if err != nil {
		t.Fatal(err)
	}
	if params.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d", params.MaxTokens)
	}
	if params.Thinking.OfEnabled == nil {
		t.Fatal("thinking must stay enabled after clamping")
	}
	if got := params.Thinking.OfEnabled.BudgetTokens; got >= params.MaxTokens {
		t.Errorf("thinking budget %d must be strictly below max_tokens %d", got, params.MaxTokens)
	}
	if got := params.Thinking.OfEnabled.BudgetTokens; got != 3072 {
		t.Errorf("clamped budget = %d, want 3072", got)
	}
}

func TestBuildAnthropicParamsThinkingUnclampedWhenItFits(t *testing.T) {
	params, err := buildAnthropicParams(thinkingTestMessages(), nil, "sonnet", map[string]any{
		"max_tokens":      8192,
		"thinking_budget": 2048,
	})
	if err != nil {
		t.Fatal(err)
	}
	if params.Thinking.OfEnabled == nil || params.Thinking.OfEnabled.BudgetTokens != 2048 {
		t.Errorf("thinking = %+v, want budget 2048", params.Thinking)
	}
}

func TestBuildAnthropicParamsThinkingDroppedBelowFloor(t *testing.T) {
	// Clamping 4096 into a 1024-token response window leaves no room for a
	// valid budget, so thinking is disabled entirely.
	params, err := buildAnthropicParams(thinkingTestMessages(), nil, "sonnet", map[string]any{
		"max_tokens":      1024,
		"thinking_budget": 4096,
	})
	if err != nil {
		t.Fatal(err)
	}
	if params.Thinking.OfEnabled != nil {
		t.Errorf("thinking must be disabled, got budget %d", params.Thinking.OfEnabled.BudgetTokens)
	}
}

func TestBuildAnthropicParamsThinkingDisabledWithTools(t *testing.T) {
	// Replayed assistant tool_use turns would need their signed thinking
	// blocks, so tool-bearing sessions run without thinking.
	tools := []ToolDefinition{{
		Type: "function",
		Function: ToolFunctionDefinition{
			Name:       "web_search",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}}
	params, err := buildAnthropicParams(thinkingTestMessages(), tools, "sonnet", map[string]any{
		"max_tokens":      8192,
		"thinking_budget": 2048,
	})
	if err != nil {
		t.Fatal(err)
	}
	if params.Thinking.OfEnabled != nil {
		t.Error("thinking must be disabled when tools are attached")
	}
	if len(params.Tools) != 1 {
		t.Errorf("tools = %d", len(params.Tools))
	}
}
