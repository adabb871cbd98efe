package providers

import "strings"

// Symbolic model tiers. Anything outside this table passes through unchanged
// and is treated as an already-qualified model identifier.
var modelTiers = map[string]string{
	"sonnet": "claude-sonnet-4-5",
	"opus":   "claude-opus-4-1",
	"haiku":  "claude-haiku-4-5",
}

// ResolveModel maps a symbolic tier to its concrete model identifier.
func ResolveModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	if concrete, ok := modelTiers[m]; ok {
		return concrete
	}
	return strings.TrimSpace(model)
}

// IsClaudeModel reports whether the (resolved) model belongs to the default
// Anthropic provider rather than an OpenAI-compatible one.
func IsClaudeModel(model string) bool {
	resolved := strings.ToLower(ResolveModel(model))
	return strings.HasPrefix(resolved, "claude")
}
