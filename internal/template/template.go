// Package template resolves base agent templates. The composition engine
// treats the registry as an external collaborator: it only ever asks for a
// template by identifier during instantiation.
package template

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template is the base shape an agent is composed onto.
type Template struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	clone := Template{ID: t.ID, Name: t.Name, Description: t.Description}
	if len(t.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for key, value := range t.Metadata {
			clone.Metadata[key] = value
		}
	}
	return clone
}

// Validate ensures the template carries an identifier.
func (t Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template: id is required")
	}
	return nil
}

// Registry resolves template identifiers.
type Registry interface {
	Resolve(id string) (Template, error)
}

// UnknownTemplateError reports an unresolvable template identifier.
type UnknownTemplateError struct {
	ID string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("template: unknown base template %s", e.ID)
}

// MemoryRegistry keeps templates in process.
type MemoryRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{templates: map[string]Template{}}
}

// Add registers a template. Re-registering an ID is rejected.
func (r *MemoryRegistry) Add(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[t.ID]; exists {
		return fmt.Errorf("template: %s already registered", t.ID)
	}
	r.templates[t.ID] = t.Clone()
	return nil
}

// MustAdd panics if registration fails. Test helper.
func (r *MemoryRegistry) MustAdd(t Template) {
	if err := r.Add(t); err != nil {
		panic(err)
	}
}

// Resolve returns the template for an ID.
func (r *MemoryRegistry) Resolve(id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, &UnknownTemplateError{ID: id}
	}
	return t.Clone(), nil
}

// IDs returns registered template identifiers, sorted.
func (r *MemoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DirRegistry loads templates from a directory of *.yaml files on first
// use. A missing directory behaves as an empty registry.
type DirRegistry struct {
	dir string

	once      sync.Once
	loadErr   error
	templates map[string]Template
}

// NewDirRegistry creates a registry rooted at dir.
func NewDirRegistry(dir string) *DirRegistry {
	return &DirRegistry{dir: dir}
}

// Resolve returns the template for an ID.
func (r *DirRegistry) Resolve(id string) (Template, error) {
	if err := r.load(); err != nil {
		return Template{}, err
	}
	t, ok := r.templates[id]
	if !ok {
		return Template{}, &UnknownTemplateError{ID: id}
	}
	return t.Clone(), nil
}

func (r *DirRegistry) load() error {
	r.once.Do(func() {
		r.templates = map[string]Template{}
		trimmed := strings.TrimSpace(r.dir)
		if trimmed == "" {
			return
		}
		entries, err := os.ReadDir(trimmed)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			r.loadErr = fmt.Errorf("template: read %s: %w", trimmed, err)
			return
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := strings.ToLower(entry.Name())
			if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
				continue
			}
			path := filepath.Join(trimmed, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				r.loadErr = fmt.Errorf("template: read %s: %w", path, err)
				return
			}
			if len(bytes.TrimSpace(data)) == 0 {
				r.loadErr = fmt.Errorf("template: %s is empty", path)
				return
			}
			var t Template
			if err := yaml.Unmarshal(data, &t); err != nil {
				r.loadErr = fmt.Errorf("template: decode %s: %w", path, err)
				return
			}
			if err := t.Validate(); err != nil {
				r.loadErr = fmt.Errorf("template: %s: %w", path, err)
				return
			}
			if _, dup := r.templates[t.ID]; dup {
				r.loadErr = fmt.Errorf("template: %s declared more than once", t.ID)
				return
			}
			r.templates[t.ID] = t
		}
	})
	return r.loadErr
}
