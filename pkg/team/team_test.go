package team

import (
	"os"
	"path/filepath"
	"testing"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		WorkspaceID: "ws-1",
		Agents: []AgentConfig{
			{Slug: "researcher", Name: "Researcher", Enabled: true},
			{Slug: "writer", Name: "Writer", Enabled: false},
		},
		DelegationRules: []DelegationRule{
			{SourceSlug: "head", TargetSlug: "researcher", ContextTemplate: "T: {{task}}"},
		},
	}
}

func TestFindAgent(t *testing.T) {
	snap := testSnapshot()

	agent, ok := snap.FindAgent("researcher")
	if !ok {
		t.Fatal("expected to find researcher")
	}
	if agent.Name != "Researcher" {
		t.Errorf("unexpected agent: %+v", agent)
	}

	if _, ok := snap.FindAgent("  researcher "); !ok {
		t.Error("expected slug lookup to trim whitespace")
	}
}

func TestFindAgentDisabledIsAbsent(t *testing.T) {
	snap := testSnapshot()
	if _, ok := snap.FindAgent("writer"); ok {
		t.Error("disabled agent must not be found")
	}
	if _, ok := snap.FindAgent("nobody"); ok {
		t.Error("unknown agent must not be found")
	}
}

func TestFindDelegationRule(t *testing.T) {
	snap := testSnapshot()

	rule, ok := snap.FindDelegationRule("head", "researcher")
	if !ok || rule.ContextTemplate != "T: {{task}}" {
		t.Fatalf("expected rule for (head, researcher), got %+v, %v", rule, ok)
	}

	if _, ok := snap.FindDelegationRule("head", "writer"); ok {
		t.Error("unexpected rule for (head, writer)")
	}
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.json")
	data := `{
		"workspace_id": "ws-42",
		"agents": [{"slug": "coder", "name": "Coder", "enabled": true}]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.WorkspaceID != "ws-42" {
		t.Errorf("workspace = %q", snap.WorkspaceID)
	}
	if _, ok := snap.FindAgent("coder"); !ok {
		t.Error("expected coder to load")
	}
}

func TestLoadSnapshotRequiresWorkspaceID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.json")
	if err := os.WriteFile(path, []byte(`{"agents": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected error for missing workspace_id")
	}
}
