package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/dreamteam-ai/dispatch/pkg/logger"
)

const openaiRequestTimeout = 120 * time.Second

// OpenAIProvider serves passthrough model identifiers: anything that is not
// a Claude tier is sent unchanged to an OpenAI-compatible endpoint.
type OpenAIProvider struct {
	apiBase string
	client  *openai.Client
}

func NewOpenAIProvider(apiKey, apiBase string) *OpenAIProvider {
	p := &OpenAIProvider{
		apiBase: strings.TrimRight(apiBase, "/"),
	}

	reqOpts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: openaiRequestTimeout}),
	}
	if p.apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.apiBase))
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	client := openai.NewClient(reqOpts...)
	p.client = &client
	return p
}

func (p *OpenAIProvider) GetDefaultModel() string {
	return "gpt-4o"
}

func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) (*LLMResponse, error) {
	params := buildOpenAIParams(messages, tools, model, options)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}

	choice := resp.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		ToolCalls:    parseOpenAIToolCalls(choice.Message.ToolCalls),
		FinishReason: choice.FinishReason,
		Usage:        mapOpenAIUsage(resp.Usage),
	}, nil
}

func (p *OpenAIProvider) ChatStream(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
	events StreamEvents,
) (*LLMResponse, error) {
	params := buildOpenAIParams(messages, tools, model, options)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" && events.OnDelta != nil {
				events.OnDelta(delta)
			}
		}
		if usage := mapOpenAIUsage(chunk.Usage); usage != nil && events.OnUsage != nil {
			events.OnUsage(*usage)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(acc.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}

	choice := acc.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		ToolCalls:    parseOpenAIToolCalls(choice.Message.ToolCalls),
		FinishReason: choice.FinishReason,
		Usage:        mapOpenAIUsage(acc.Usage),
	}, nil
}

func buildOpenAIParams(
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    normalizeOpenAIModel(model),
		Messages: buildOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = buildOpenAITools(tools)
		params.ToolChoice.OfAuto = openai.String(string(openai.ChatCompletionToolChoiceOptionAutoAuto))
	}
	if maxTokens, ok := options["max_tokens"].(int); ok {
		params.MaxCompletionTokens = openai.Opt(int64(maxTokens))
	}
	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = openai.Opt(temp)
	}
	return params
}

func normalizeOpenAIModel(model string) string {
	trimmed := strings.TrimSpace(model)
	if strings.HasPrefix(strings.ToLower(trimmed), "openai/") {
		return trimmed[len("openai/"):]
	}
	return trimmed
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, buildOpenAIAssistantMessage(msg))
		case "tool":
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func buildOpenAIAssistantMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		name := tc.Name
		if name == "" && tc.Function != nil {
			name = tc.Function.Name
		}
		if name == "" {
			continue
		}
		args := "{}"
		if len(tc.Arguments) > 0 {
			if b, err := json.Marshal(tc.Arguments); err == nil {
				args = string(b)
			}
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      name,
					Arguments: args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func buildOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool.Function.Name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  shared.FunctionParameters(tool.Function.Parameters),
		}
		out = append(out, openai.ChatCompletionFunctionTool(fn))
	}
	return out
}

func parseOpenAIToolCalls(calls []openai.ChatCompletionMessageToolCallUnion) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		switch v := call.AsAny().(type) {
		case openai.ChatCompletionMessageFunctionToolCall:
			args := map[string]any{}
			if strings.TrimSpace(v.Function.Arguments) != "" {
				if err := json.Unmarshal([]byte(v.Function.Arguments), &args); err != nil {
					logger.WarnCF("providers", "failed to decode tool call arguments",
						map[string]any{"tool": v.Function.Name, "error": err.Error()})
				}
			}
			result = append(result, ToolCall{
				ID:   v.ID,
				Type: "function",
				Function: &FunctionCall{
					Name:      v.Function.Name,
					Arguments: v.Function.Arguments,
				},
				Name:      v.Function.Name,
				Arguments: args,
			})
		}
	}
	return result
}

func mapOpenAIUsage(usage openai.CompletionUsage) *UsageInfo {
	if usage.TotalTokens == 0 && usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return nil
	}
	return &UsageInfo{
		InputTokens:  int(usage.PromptTokens),
		OutputTokens: int(usage.CompletionTokens),
	}
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf(
			"OpenAI API request failed (status=%d): %s",
			apiErr.StatusCode,
			strings.TrimSpace(apiErr.Message),
		)
	}
	return fmt.Errorf("OpenAI API request failed: %w", err)
}
