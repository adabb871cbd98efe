package delegation

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamteam-ai/dispatch/pkg/config"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/prompt"
	"github.com/dreamteam-ai/dispatch/pkg/providers"
	"github.com/dreamteam-ai/dispatch/pkg/team"
	"github.com/dreamteam-ai/dispatch/pkg/tools"
)

// InlineExecutor runs a delegated task synchronously in-process. It never
// returns a Go error: every failure is converted into a failure-shaped
// Result so the head agent can reason about it as tool output.
//
// The delegated sub-session is bounded well below a top-level conversation
// (turn cap, thinking budget) and can never see the delegation or
// orchestration tools, which prevents unbounded delegation chains. Its
// transcript is not persisted as a conversation.
type InlineExecutor struct {
	factory        *providers.Factory
	registry       *tools.Registry
	maxTurns       int
	maxTokens      int
	thinkingBudget int
}

// The caps are ceilings: config can tighten a sub-session, never widen it
// past what a delegated task is allowed.
const (
	turnCap           = 8
	thinkingBudgetCap = 4096
)

func NewInlineExecutor(factory *providers.Factory, registry *tools.Registry, cfg config.DelegationConfig) *InlineExecutor {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 || maxTurns > turnCap {
		maxTurns = turnCap
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	thinkingBudget := cfg.ThinkingBudgetTokens
	if thinkingBudget > thinkingBudgetCap {
		thinkingBudget = thinkingBudgetCap
	}
	return &InlineExecutor{
		factory:        factory,
		registry:       registry,
		maxTurns:       maxTurns,
		maxTokens:      maxTokens,
		thinkingBudget: thinkingBudget,
	}
}

func (e *InlineExecutor) Execute(ctx context.Context, snap *team.Snapshot, in Input, sess Session) Result {
	agent, ok := snap.FindAgent(in.AgentSlug)
	if !ok {
		return failure("", in.AgentSlug, fmt.Sprintf("Agent %q not found or is disabled", in.AgentSlug))
	}

	systemPrompt := prompt.BuildSystemPrompt(agent, snap.SharedKnowledge, snap.WorkspaceID)
	taskMessage := prompt.ComposeTaskMessage(snap, sess.HeadAgentSlug, in.AgentSlug, in.Task, in.Context)

	response, usage, err := e.run(ctx, agent, systemPrompt, taskMessage, sess)
	if err != nil {
		logger.WarnCF("delegation", "Inline delegation failed",
			map[string]any{
				"agent":     agent.Slug,
				"workspace": sess.WorkspaceID,
				"error":     err.Error(),
			})
		return failure(agent.Name, agent.Slug, err.Error())
	}

	logger.InfoCF("delegation", "Inline delegation completed",
		map[string]any{
			"agent":         agent.Slug,
			"workspace":     sess.WorkspaceID,
			"response_len":  len(response),
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
		})
	return Result{
		Success:   true,
		AgentName: agent.Name,
		AgentSlug: agent.Slug,
		Response:  response,
		Usage:     &usage,
	}
}

// run drives the bounded stream/tool loop and aggregates output and usage.
func (e *InlineExecutor) run(
	ctx context.Context,
	agent *team.AgentConfig,
	systemPrompt, taskMessage string,
	sess Session,
) (string, Usage, error) {
	provider := e.factory.ProviderFor(agent.Model)

	// The delegated session only ever sees the agent's allow-listed tools,
	// minus the delegation-capable ones. This holds even if the allow-list
	// names them.
	allowed := e.registryFor(agent)
	var toolDefs []providers.ToolDefinition
	if allowed.Count() > 0 {
		toolDefs = allowed.ToProviderDefs()
	}

	scope := tools.Scope{WorkspaceID: sess.WorkspaceID, UserID: sess.UserID}
	options := map[string]any{"max_tokens": e.maxTokens}
	if e.thinkingBudget > 0 {
		options["thinking_budget"] = e.thinkingBudget
	}

	messages := []providers.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: taskMessage},
	}

	var response strings.Builder
	var usage Usage

	events := providers.StreamEvents{
		OnDelta: func(delta string) {
			response.WriteString(delta)
		},
		OnUsage: func(interim providers.UsageInfo) {
			// Interim figures are progress only; the terminal usage on each
			// response is authoritative.
			logger.DebugCF("delegation", "Interim usage",
				map[string]any{"agent": agent.Slug, "output_tokens": interim.OutputTokens})
		},
	}

	for turn := 0; turn < e.maxTurns; turn++ {
		resp, err := provider.ChatStream(ctx, messages, toolDefs, agent.Model, options, events)
		if err != nil {
			return "", Usage{}, err
		}
		if resp.Usage != nil {
			usage.InputTokens += resp.Usage.InputTokens
			usage.OutputTokens += resp.Usage.OutputTokens
		}

		if len(resp.ToolCalls) == 0 {
			return response.String(), usage, nil
		}

		assistantMsg := providers.Message{Role: "assistant", Content: resp.Content}
		assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, resp.ToolCalls...)
		messages = append(messages, assistantMsg)

		for _, tc := range resp.ToolCalls {
			result := allowed.Execute(ctx, tc.Name, scope, tc.Arguments)
			content := result.ForLLM
			if content == "" && result.Err != nil {
				content = result.Err.Error()
			}
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", Usage{}, fmt.Errorf("delegated agent %q exceeded %d turns without completing", agent.Slug, e.maxTurns)
}

func (e *InlineExecutor) registryFor(agent *team.AgentConfig) *tools.Registry {
	if e.registry == nil || len(agent.Tools) == 0 {
		return tools.NewRegistry()
	}
	return e.registry.Subset(agent.Tools, tools.DisallowedForDelegation()...)
}
