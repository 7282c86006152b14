package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelworks/loom/internal/capability"
)

func TestMemoryStoreResolvesHighestVersion(t *testing.T) {
	s := NewMemoryStore()
	s.MustAdd(capability.Definition{Name: "deep-reasoning", Version: "1.0.0"})
	s.MustAdd(capability.Definition{Name: "deep-reasoning", Version: "1.4.0"})
	s.MustAdd(capability.Definition{Name: "deep-reasoning", Version: "2.0.0"})

	def, err := s.Resolve(context.Background(), "deep-reasoning", "^1.0.0")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if def.Version != "1.4.0" {
		t.Fatalf("expected 1.4.0, got %s", def.Version)
	}

	def, err = s.Resolve(context.Background(), "deep-reasoning", "")
	if err != nil {
		t.Fatalf("resolve wildcard: %v", err)
	}
	if def.Version != "2.0.0" {
		t.Fatalf("expected 2.0.0, got %s", def.Version)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Resolve(context.Background(), "ghost", "")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Name != "ghost" {
		t.Fatalf("unexpected name: %s", notFound.Name)
	}
}

func TestMemoryStoreVersionError(t *testing.T) {
	s := NewMemoryStore()
	s.MustAdd(capability.Definition{Name: "deep-reasoning", Version: "1.0.0"})
	_, err := s.Resolve(context.Background(), "deep-reasoning", ">=2.0.0")
	var versionErr *VersionError
	if !errors.As(err, &versionErr) {
		t.Fatalf("expected VersionError, got %v", err)
	}
	if len(versionErr.Available) != 1 || versionErr.Available[0] != "1.0.0" {
		t.Fatalf("unexpected available versions: %v", versionErr.Available)
	}
}

func TestMemoryStoreRejectsDuplicateRegistration(t *testing.T) {
	s := NewMemoryStore()
	s.MustAdd(capability.Definition{Name: "deep-reasoning", Version: "1.0.0"})
	if err := s.Add(capability.Definition{Name: "deep-reasoning", Version: "1.0.0"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestMemoryStoreResolveReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.MustAdd(capability.Definition{
		Name:          "deep-reasoning",
		Version:       "1.0.0",
		Prerequisites: []string{"memory-management"},
	})
	def, err := s.Resolve(context.Background(), "deep-reasoning", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	def.Prerequisites[0] = "mutated"
	again, err := s.Resolve(context.Background(), "deep-reasoning", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if again.Prerequisites[0] != "memory-management" {
		t.Fatalf("store handed out shared state")
	}
}

func TestFSStoreLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	payload := "name: memory-management\nversion: 1.0.0\n"
	if err := os.WriteFile(filepath.Join(dir, "memory.yaml"), []byte(payload), 0644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	payload = "name: memory-management\nversion: 1.2.0\n"
	if err := os.WriteFile(filepath.Join(dir, "memory-1.2.yaml"), []byte(payload), 0644); err != nil {
		t.Fatalf("write definition: %v", err)
	}

	s := NewFSStore(dir)
	def, err := s.Resolve(context.Background(), "memory-management", "^1.0.0")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if def.Version != "1.2.0" {
		t.Fatalf("expected 1.2.0, got %s", def.Version)
	}

	names, err := s.Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 1 || names[0] != "memory-management" {
		t.Fatalf("unexpected names: %v", names)
	}
	if _, ok := s.Source("memory-management", "1.2.0"); !ok {
		t.Fatalf("expected source path for loaded definition")
	}
}

func TestFSStoreMissingDirIsEmpty(t *testing.T) {
	s := NewFSStore(filepath.Join(t.TempDir(), "missing"))
	_, err := s.Resolve(context.Background(), "anything", "")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFSStoreRejectsDuplicateDefinition(t *testing.T) {
	dir := t.TempDir()
	payload := "name: memory-management\nversion: 1.0.0\n"
	for _, file := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(payload), 0644); err != nil {
			t.Fatalf("write definition: %v", err)
		}
	}
	s := NewFSStore(dir)
	if _, err := s.Resolve(context.Background(), "memory-management", ""); err == nil {
		t.Fatalf("expected duplicate name@version to fail loading")
	}
}
