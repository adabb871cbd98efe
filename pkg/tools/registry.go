package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/providers"
)

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Subset returns a registry containing only the allow-listed tools, minus
// anything in the denied set. Unknown allow-list names are skipped.
func (r *Registry) Subset(allowed []string, denied ...string) *Registry {
	deniedSet := make(map[string]struct{}, len(denied))
	for _, name := range denied {
		deniedSet[name] = struct{}{}
	}

	sub := NewRegistry()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range allowed {
		if _, deny := deniedSet[name]; deny {
			continue
		}
		if tool, ok := r.tools[name]; ok {
			sub.tools[name] = tool
		}
	}
	return sub
}

// Execute runs a tool under the given scope and logs the outcome.
func (r *Registry) Execute(ctx context.Context, name string, scope Scope, args map[string]any) *ToolResult {
	tool, ok := r.Get(name)
	if !ok {
		logger.ErrorCF("tools", "Tool not found", map[string]any{"tool": name})
		return ErrorResult(fmt.Sprintf("tool %q not found", name)).WithError(fmt.Errorf("tool not found"))
	}

	start := time.Now()
	result := tool.Execute(ctx, scope, args)
	duration := time.Since(start)

	if result.IsError {
		logger.ErrorCF("tools", "Tool execution failed",
			map[string]any{
				"tool":        name,
				"workspace":   scope.WorkspaceID,
				"duration_ms": duration.Milliseconds(),
				"error":       result.ForLLM,
			})
	} else {
		logger.DebugCF("tools", "Tool execution completed",
			map[string]any{
				"tool":        name,
				"workspace":   scope.WorkspaceID,
				"duration_ms": duration.Milliseconds(),
			})
	}
	return result
}

// sortedNames keeps definition order deterministic so identical registries
// always produce identical tool definition lists.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToProviderDefs converts registered tools into the provider wire format.
func (r *Registry) ToProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedNames()
	defs := make([]providers.ToolDefinition, 0, len(sorted))
	for _, name := range sorted {
		tool := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}
