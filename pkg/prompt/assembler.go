// Package prompt builds the system prompt and task message for a delegated
// agent. Everything here is pure string construction: the same inputs always
// produce byte-identical output.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dreamteam-ai/dispatch/pkg/team"
)

// BuildSystemPrompt assembles the delegated agent's system prompt in fixed
// order: base prompt, rules, knowledge, skills, then the delegation trailer.
// The trailer is load-bearing: tools are workspace-scoped and cannot infer
// the workspace unless every tool invocation carries its identifier.
func BuildSystemPrompt(agent *team.AgentConfig, shared []team.KnowledgeEntry, workspaceID string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(agent.SystemPrompt))

	if len(agent.Rules) > 0 {
		b.WriteString("\n\n# Operating Rules\n")
		for _, rule := range sortedRules(agent.Rules) {
			fmt.Fprintf(&b, "- [%s] %s\n", strings.ToUpper(string(rule.Type)), rule.Content)
		}
	}

	if len(agent.Mind) > 0 || len(shared) > 0 {
		b.WriteString("\n# Knowledge\n")
		for _, entry := range agent.Mind {
			writeKnowledge(&b, entry)
		}
		for _, entry := range shared {
			writeKnowledge(&b, entry)
		}
	}

	if len(agent.Skills) > 0 {
		b.WriteString("\n# Skills\n")
		for _, skill := range agent.Skills {
			fmt.Fprintf(&b, "\n## %s\n%s\n", skill.Name, skill.Content)
		}
	}

	b.WriteString(delegationTrailer(workspaceID))

	return b.String()
}

// sortedRules orders rules by descending priority, keeping the original
// order for equal priorities so the output stays stable.
func sortedRules(rules []team.Rule) []team.Rule {
	out := make([]team.Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

func writeKnowledge(b *strings.Builder, entry team.KnowledgeEntry) {
	fmt.Fprintf(b, "\n## %s: %s\n%s\n", entry.Category, entry.Name, entry.Content)
}

func delegationTrailer(workspaceID string) string {
	return fmt.Sprintf(`

# Delegated Task
You are completing a single delegated task for workspace %q on behalf of another agent. Respond with the final result only; the delegating agent is responsible for relaying it.
Every tool invocation MUST include "workspace_id": %q in its input. Tools are scoped to this workspace and reject calls without it.`, workspaceID, workspaceID)
}
