package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `base_template: research-assistant
capabilities:
  - name: deep-reasoning
    version: "^1.0.0"
    config:
      depth: 3
  - name: memory-management
composition_rules:
  conflict_resolution: first-wins
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.BaseTemplate != "research-assistant" {
		t.Fatalf("unexpected base template: %q", m.BaseTemplate)
	}
	if len(m.Capabilities) != 2 {
		t.Fatalf("expected 2 capabilities, got %d", len(m.Capabilities))
	}
	if m.Capabilities[0].Version != "^1.0.0" {
		t.Fatalf("unexpected constraint: %q", m.Capabilities[0].Version)
	}
	if m.Rules.ConflictResolution != StrategyFirstWins {
		t.Fatalf("unexpected strategy: %q", m.Rules.ConflictResolution)
	}
}

func TestParseDefaultsStrategy(t *testing.T) {
	m, err := Parse([]byte("base_template: helper\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Rules.ConflictResolution != StrategyError {
		t.Fatalf("expected default strategy error, got %q", m.Rules.ConflictResolution)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty payload":    "",
		"missing template": "capabilities:\n  - name: a\n",
		"unknown strategy": "base_template: t\ncomposition_rules:\n  conflict_resolution: newest-wins\n",
		"unnamed ref":      "base_template: t\ncapabilities:\n  - version: \"1.0.0\"\n",
	}
	for label, payload := range cases {
		if _, err := Parse([]byte(payload)); err == nil {
			t.Fatalf("%s: expected parse to fail", label)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.BaseTemplate != "research-assistant" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	clone := m.Clone()
	clone.Capabilities[0].Name = "changed"
	clone.Capabilities[0].Config["depth"] = 9
	if m.Capabilities[0].Name != "deep-reasoning" {
		t.Fatalf("clone shared capability slice")
	}
	if m.Capabilities[0].Config["depth"] == 9 {
		t.Fatalf("clone shared config map")
	}
}

func TestStrategyOrdered(t *testing.T) {
	if StrategyError.Ordered() || StrategyMerge.Ordered() {
		t.Fatalf("error and merge must be order-independent")
	}
	if !StrategyFirstWins.Ordered() || !StrategyLastWins.Ordered() {
		t.Fatalf("first-wins and last-wins are order-sensitive")
	}
}
