package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/semver"
)

// FSStore serves capability definitions from a directory of *.yaml files
// plus optional *.go scripted definitions. The directory is scanned once
// on first use and the parsed index reused for every lookup afterwards.
type FSStore struct {
	dir string

	once    sync.Once
	loadErr error
	entries map[string][]memoryEntry
	sources map[string]string
}

// NewFSStore creates a store rooted at dir. A missing directory behaves as
// an empty store.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// Resolve returns the highest on-disk version satisfying the constraint.
func (s *FSStore) Resolve(_ context.Context, name, constraint string) (capability.Definition, error) {
	if err := s.load(); err != nil {
		return capability.Definition{}, err
	}
	return pickVersion(name, constraint, s.entries[name])
}

// Names returns every capability name found in the directory, sorted.
func (s *FSStore) Names() ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Source returns the file a definition was loaded from, for diagnostics.
func (s *FSStore) Source(name, version string) (string, bool) {
	if err := s.load(); err != nil {
		return "", false
	}
	path, ok := s.sources[name+"@"+version]
	return path, ok
}

func (s *FSStore) load() error {
	s.once.Do(func() {
		files, err := capability.LoadDefinitionDir(s.dir)
		if err != nil {
			s.loadErr = err
			return
		}
		scripted, err := capability.LoadGoDefinitionDir(s.dir)
		if err != nil {
			s.loadErr = err
			return
		}
		files = append(files, scripted...)

		s.entries = map[string][]memoryEntry{}
		s.sources = map[string]string{}
		for _, file := range files {
			def := file.Definition
			version, err := semver.ParseVersion(def.Version)
			if err != nil {
				s.loadErr = fmt.Errorf("store: %s: %w", file.Path, err)
				return
			}
			if existing, dup := s.sources[def.Key()]; dup {
				s.loadErr = fmt.Errorf("store: %s declared in both %s and %s", def.Key(), existing, file.Path)
				return
			}
			s.entries[def.Name] = append(s.entries[def.Name], memoryEntry{version: version, definition: def})
			s.sources[def.Key()] = file.Path
		}
	})
	return s.loadErr
}
