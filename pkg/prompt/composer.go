package prompt

import (
	"strings"

	"github.com/dreamteam-ai/dispatch/pkg/team"
)

// ContextFallback is substituted for the {{context}} placeholder when the
// caller supplied no context.
const ContextFallback = "No additional context provided."

// ComposeTaskMessage renders the user-visible task message for a delegated
// agent. A delegation rule with a context template wins; otherwise the
// default two-section format (or the bare task when there is no context).
func ComposeTaskMessage(snap *team.Snapshot, headSlug, targetSlug, task, context string) string {
	if rule, ok := snap.FindDelegationRule(headSlug, targetSlug); ok && rule.ContextTemplate != "" {
		return renderTemplate(rule.ContextTemplate, task, context)
	}
	return ComposeDefault(task, context)
}

// ComposeDefault is the template-free message format, also used verbatim for
// channel postings.
func ComposeDefault(task, context string) string {
	if context == "" {
		return task
	}
	return "## Context from conversation:\n" + context + "\n\n## Task:\n" + task
}

func renderTemplate(template, task, context string) string {
	if context == "" {
		context = ContextFallback
	}
	out := strings.ReplaceAll(template, "{{task}}", task)
	out = strings.ReplaceAll(out, "{{context}}", context)
	return out
}
