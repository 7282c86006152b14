package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/semver"
)

type memoryEntry struct {
	version    semver.Version
	definition capability.Definition
}

// MemoryStore keeps capability definitions in process. It backs tests and
// embedders that register definitions programmatically.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]memoryEntry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]memoryEntry{}}
}

// Add validates and registers a definition. Re-adding an existing
// name+version is rejected; definitions are immutable once stored.
func (s *MemoryStore) Add(def capability.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	normalized := def.Normalized()
	version, err := semver.ParseVersion(normalized.Version)
	if err != nil {
		return fmt.Errorf("store: capability %s: %w", normalized.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries[normalized.Name] {
		if entry.definition.Version == normalized.Version {
			return fmt.Errorf("store: capability %s already registered", normalized.Key())
		}
	}
	s.entries[normalized.Name] = append(s.entries[normalized.Name], memoryEntry{version: version, definition: normalized})
	return nil
}

// MustAdd panics if registration fails. Test helper.
func (s *MemoryStore) MustAdd(def capability.Definition) {
	if err := s.Add(def); err != nil {
		panic(err)
	}
}

// Resolve returns the highest registered version satisfying the constraint.
func (s *MemoryStore) Resolve(_ context.Context, name, constraint string) (capability.Definition, error) {
	s.mu.RLock()
	entries := s.entries[name]
	s.mu.RUnlock()
	return pickVersion(name, constraint, entries)
}

// Names returns the registered capability names, sorted.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pickVersion(name, constraint string, entries []memoryEntry) (capability.Definition, error) {
	if len(entries) == 0 {
		return capability.Definition{}, &NotFoundError{Name: name}
	}
	parsed, err := semver.ParseConstraint(constraint)
	if err != nil {
		return capability.Definition{}, err
	}
	best := -1
	for i, entry := range entries {
		if !semver.Satisfies(entry.version, parsed) {
			continue
		}
		if best == -1 || semver.Compare(entry.version, entries[best].version) > 0 {
			best = i
		}
	}
	if best == -1 {
		available := make([]string, 0, len(entries))
		for _, entry := range entries {
			available = append(available, entry.definition.Version)
		}
		sort.Strings(available)
		return capability.Definition{}, &VersionError{Name: name, Constraint: constraint, Available: available}
	}
	return entries[best].definition.Clone(), nil
}
