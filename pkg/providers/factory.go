package providers

import "github.com/dreamteam-ai/dispatch/pkg/config"

// Factory routes each model identifier to the provider that serves it:
// Claude tiers to Anthropic, everything else passed through to the
// OpenAI-compatible endpoint.
type Factory struct {
	anthropic LLMProvider
	openai    LLMProvider
}

func NewFactory(cfg config.LLMConfig) *Factory {
	return &Factory{
		anthropic: NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL),
		openai:    NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
	}
}

// NewFactoryWithProviders is used by tests and embedders that supply their
// own provider implementations.
func NewFactoryWithProviders(anthropic, openai LLMProvider) *Factory {
	return &Factory{anthropic: anthropic, openai: openai}
}

func (f *Factory) ProviderFor(model string) LLMProvider {
	if IsClaudeModel(model) {
		return f.anthropic
	}
	return f.openai
}
