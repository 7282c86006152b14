package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryRegistryResolve(t *testing.T) {
	r := NewMemoryRegistry()
	r.MustAdd(Template{ID: "research-assistant", Name: "Research Assistant"})

	resolved, err := r.Resolve("research-assistant")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Name != "Research Assistant" {
		t.Fatalf("unexpected template: %+v", resolved)
	}
}

func TestMemoryRegistryUnknown(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.Resolve("ghost")
	var unknown *UnknownTemplateError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTemplateError, got %v", err)
	}
	if unknown.ID != "ghost" {
		t.Fatalf("unexpected id: %s", unknown.ID)
	}
}

func TestMemoryRegistryRejectsDuplicates(t *testing.T) {
	r := NewMemoryRegistry()
	r.MustAdd(Template{ID: "helper"})
	if err := r.Add(Template{ID: "helper"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestDirRegistryLoads(t *testing.T) {
	dir := t.TempDir()
	payload := "id: research-assistant\nname: Research Assistant\n"
	if err := os.WriteFile(filepath.Join(dir, "research.yaml"), []byte(payload), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	r := NewDirRegistry(dir)
	resolved, err := r.Resolve("research-assistant")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Name != "Research Assistant" {
		t.Fatalf("unexpected template: %+v", resolved)
	}
}

func TestDirRegistryMissingDirIsEmpty(t *testing.T) {
	r := NewDirRegistry(filepath.Join(t.TempDir(), "missing"))
	_, err := r.Resolve("anything")
	var unknown *UnknownTemplateError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTemplateError, got %v", err)
	}
}
