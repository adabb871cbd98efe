// Package team holds the workspace team snapshot: the set of configured
// agents, shared knowledge, and delegation rules. The snapshot is read-only
// from the delegation subsystem's perspective and immutable for the duration
// of a single delegation.
package team

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type RuleType string

const (
	RuleAlways RuleType = "always"
	RuleNever  RuleType = "never"
	RuleWhen   RuleType = "when"
)

// Rule is a directive injected into an agent's system prompt.
type Rule struct {
	Type     RuleType `json:"type"`
	Content  string   `json:"content"`
	Priority int      `json:"priority"`
}

// KnowledgeEntry is a snippet of agent- or team-level knowledge.
type KnowledgeEntry struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Content  string `json:"content"`
}

type Skill struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type AgentConfig struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	SystemPrompt string           `json:"system_prompt"`
	Model        string           `json:"model"`
	Tools        []string         `json:"tools,omitempty"`
	Rules        []Rule           `json:"rules,omitempty"`
	Mind         []KnowledgeEntry `json:"mind,omitempty"`
	Skills       []Skill          `json:"skills,omitempty"`
	Enabled      bool             `json:"enabled"`
}

// DelegationRule selects a message template for a (head agent, target agent)
// pair. Absence of a rule means the default message format applies.
type DelegationRule struct {
	SourceSlug      string `json:"source_agent_slug"`
	TargetSlug      string `json:"target_agent_slug"`
	ContextTemplate string `json:"context_template,omitempty"`
}

type Snapshot struct {
	WorkspaceID     string           `json:"workspace_id"`
	Agents          []AgentConfig    `json:"agents"`
	SharedKnowledge []KnowledgeEntry `json:"shared_knowledge,omitempty"`
	DelegationRules []DelegationRule `json:"delegation_rules,omitempty"`
}

// FindAgent resolves a slug to its enabled agent config. Disabled agents are
// treated the same as absent ones so callers get a single not-found path.
func (s *Snapshot) FindAgent(slug string) (*AgentConfig, bool) {
	slug = strings.TrimSpace(slug)
	for i := range s.Agents {
		if s.Agents[i].Slug == slug && s.Agents[i].Enabled {
			return &s.Agents[i], true
		}
	}
	return nil, false
}

// FindDelegationRule looks up the rule for a (source, target) pair.
func (s *Snapshot) FindDelegationRule(sourceSlug, targetSlug string) (*DelegationRule, bool) {
	for i := range s.DelegationRules {
		r := &s.DelegationRules[i]
		if r.SourceSlug == sourceSlug && r.TargetSlug == targetSlug {
			return r, true
		}
	}
	return nil, false
}

// LoadSnapshot reads a team snapshot from a JSON file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing team snapshot %s: %w", path, err)
	}
	if snap.WorkspaceID == "" {
		return nil, fmt.Errorf("team snapshot %s: workspace_id is required", path)
	}
	return &snap, nil
}
