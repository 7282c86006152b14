package capability

import (
	"os"
	"path/filepath"
	"testing"
)

const goDefinitionSource = `package main

func CapabilityDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"name":    "scripted-recall",
			"version": "1.0.0",
			"behaviors": []map[string]any{
				{"name": "recall", "output": map[string]any{"type": "notes"}},
			},
		},
	}, nil
}`

func TestLoadGoDefinitionDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scripted.go"), []byte(goDefinitionSource), 0644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	defs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		t.Fatalf("load go defs: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Definition.Name != "scripted-recall" {
		t.Fatalf("unexpected definition: %+v", defs[0].Definition)
	}
}

func TestLoadGoDefinitionDirMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatalf("write broken definition: %v", err)
	}
	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatalf("expected error for missing CapabilityDefinitions function")
	}
}

func TestLoadGoDefinitionDirMissing(t *testing.T) {
	defs, err := LoadGoDefinitionDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", defs)
	}
}
