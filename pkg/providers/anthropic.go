package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dreamteam-ai/dispatch/pkg/logger"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

// AnthropicProvider serves the Claude model tiers.
type AnthropicProvider struct {
	client  *anthropic.Client
	baseURL string
}

func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	base := normalizeAnthropicBaseURL(baseURL)
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(base),
	)
	return &AnthropicProvider{
		client:  &client,
		baseURL: base,
	}
}

func NewAnthropicProviderWithClient(client *anthropic.Client) *AnthropicProvider {
	return &AnthropicProvider{
		client:  client,
		baseURL: anthropicDefaultBaseURL,
	}
}

func (p *AnthropicProvider) GetDefaultModel() string {
	return ResolveModel("sonnet")
}

func (p *AnthropicProvider) Chat(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) (*LLMResponse, error) {
	params, err := buildAnthropicParams(messages, tools, model, options)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}
	return parseAnthropicResponse(resp), nil
}

// ChatStream streams the response, delivering text fragments and interim
// usage figures through events. The returned response carries the terminal
// usage, which is authoritative.
func (p *AnthropicProvider) ChatStream(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
	events StreamEvents,
) (*LLMResponse, error) {
	params, err := buildAnthropicParams(messages, tools, model, options)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	var accumulated anthropic.Message
	for stream.Next() {
		event := stream.Current()

		if err := accumulated.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulating stream event: %w", err)
		}

		switch e := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if events.OnDelta != nil {
				if td := e.Delta.AsTextDelta(); td.Text != "" {
					events.OnDelta(td.Text)
				}
			}
		case anthropic.MessageDeltaEvent:
			if events.OnUsage != nil {
				events.OnUsage(UsageInfo{OutputTokens: int(e.Usage.OutputTokens)})
			}
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic streaming API call: %w", err)
	}

	return parseAnthropicResponse(&accumulated), nil
}

func buildAnthropicParams(
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var anthropicMessages []anthropic.MessageParam

	// All tool_result blocks for one assistant tool_use turn must land in a
	// single user message, so consecutive tool results are merged.
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case "user":
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)),
			)
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				if msg.Content != "" {
					blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
				}
				for _, tc := range msg.ToolCalls {
					args := tc.Arguments
					if args == nil && tc.Function != nil && tc.Function.Arguments != "" {
						_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
					}
					if args == nil {
						args = map[string]any{}
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
				}
				anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(blocks...))
			} else {
				anthropicMessages = append(anthropicMessages,
					anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)),
				)
			}
		case "tool":
			var toolBlocks []anthropic.ContentBlockParamUnion
			for i < len(messages) && messages[i].Role == "tool" {
				toolBlocks = append(toolBlocks,
					anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
				i++
			}
			i-- // outer loop will increment
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(toolBlocks...))
		}
	}

	maxTokens := int64(4096)
	if mt, ok := options["max_tokens"].(int); ok {
		maxTokens = int64(mt)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ResolveModel(model)),
		Messages:  anthropicMessages,
		MaxTokens: maxTokens,
	}

	if len(system) > 0 {
		params.System = system
	}

	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = anthropic.Float(temp)
	}

	// Thinking stays off for tool-bearing sessions: replaying an assistant
	// tool_use turn requires its signed thinking blocks, which the neutral
	// message type does not carry. The API also requires the budget strictly
	// below max_tokens with a 1024 floor.
	if budget, ok := options["thinking_budget"].(int); ok && budget > 0 && len(tools) == 0 {
		if int64(budget) >= maxTokens {
			budget = int(maxTokens) - 1024
		}
		if budget >= 1024 {
			params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(budget))
		}
	}

	if len(tools) > 0 {
		params.Tools = translateAnthropicTools(tools)
	}

	return params, nil
}

func translateAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tool := anthropic.ToolParam{
			Name: t.Function.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Function.Parameters["properties"],
			},
		}
		if desc := t.Function.Description; desc != "" {
			tool.Description = anthropic.String(desc)
		}
		if req, ok := t.Function.Parameters["required"].([]any); ok {
			required := make([]string, 0, len(req))
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
			tool.InputSchema.Required = required
		}
		result = append(result, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return result
}

func parseAnthropicResponse(resp *anthropic.Message) *LLMResponse {
	var content string
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			tb := block.AsText()
			content += tb.Text
		case "tool_use":
			tu := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(tu.Input, &args); err != nil {
				logger.WarnCF("providers", "failed to decode tool call input",
					map[string]any{"tool": tu.Name, "error": err.Error()})
				args = map[string]any{"raw": string(tu.Input)}
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: args,
			})
		}
	}

	finishReason := "stop"
	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		finishReason = "tool_calls"
	case anthropic.StopReasonMaxTokens:
		finishReason = "length"
	case anthropic.StopReasonEndTurn:
		finishReason = "stop"
	}

	return &LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finishReason,
		Usage: &UsageInfo{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
}

func normalizeAnthropicBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return anthropicDefaultBaseURL
	}
	return base
}
