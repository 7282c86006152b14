package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy selects how behavior-name collisions are resolved during
// composition.
type Strategy string

const (
	StrategyError     Strategy = "error"
	StrategyFirstWins Strategy = "first-wins"
	StrategyLastWins  Strategy = "last-wins"
	StrategyMerge     Strategy = "merge"
)

// Ordered reports whether the strategy depends on the order capabilities
// were listed in the request.
func (s Strategy) Ordered() bool {
	return s == StrategyFirstWins || s == StrategyLastWins
}

func (s Strategy) valid() bool {
	switch s {
	case StrategyError, StrategyFirstWins, StrategyLastWins, StrategyMerge:
		return true
	}
	return false
}

// Manifest is a composition request: a base template plus an ordered list
// of capability references and the rules governing their combination.
type Manifest struct {
	BaseTemplate string          `json:"base_template" yaml:"base_template"`
	Capabilities []Ref           `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Rules        CompositionRule `json:"composition_rules,omitempty" yaml:"composition_rules,omitempty"`
}

// Ref names one requested capability with an optional semver constraint
// and per-capability configuration.
type Ref struct {
	Name    string         `json:"name" yaml:"name"`
	Version string         `json:"version,omitempty" yaml:"version,omitempty"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// CompositionRule carries the conflict-resolution policy. Modeled as an
// explicit field threaded through every stage rather than ambient state so
// concurrent runs with different strategies cannot interfere.
type CompositionRule struct {
	ConflictResolution Strategy `json:"conflict_resolution,omitempty" yaml:"conflict_resolution,omitempty"`
}

// Parse decodes a manifest payload and validates its structure. No
// capability content is fetched at this stage.
func Parse(data []byte) (Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, fmt.Errorf("manifest: payload is empty")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: decode: %w", err)
	}
	normalized, err := m.Normalized()
	if err != nil {
		return Manifest{}, err
	}
	return normalized, nil
}

// Load reads and parses a manifest file from disk.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return m, nil
}

// Clone returns a deep copy of the manifest.
func (m Manifest) Clone() Manifest {
	clone := Manifest{
		BaseTemplate: m.BaseTemplate,
		Rules:        m.Rules,
	}
	if len(m.Capabilities) > 0 {
		clone.Capabilities = make([]Ref, len(m.Capabilities))
		for i, ref := range m.Capabilities {
			clone.Capabilities[i] = ref.Clone()
		}
	}
	return clone
}

// Clone returns a deep copy of the reference. Config values are copied
// shallowly; they are opaque to the engine.
func (r Ref) Clone() Ref {
	clone := Ref{Name: r.Name, Version: r.Version}
	if len(r.Config) > 0 {
		clone.Config = make(map[string]any, len(r.Config))
		for key, value := range r.Config {
			clone.Config[key] = value
		}
	}
	return clone
}

// Normalized clones the manifest, trims identifiers, applies the default
// strategy, and validates the result.
func (m Manifest) Normalized() (Manifest, error) {
	clone := m.Clone()
	clone.BaseTemplate = strings.TrimSpace(clone.BaseTemplate)
	for i, ref := range clone.Capabilities {
		ref.Name = strings.TrimSpace(ref.Name)
		ref.Version = strings.TrimSpace(ref.Version)
		clone.Capabilities[i] = ref
	}
	if clone.Rules.ConflictResolution == "" {
		clone.Rules.ConflictResolution = StrategyError
	}
	if err := clone.Validate(); err != nil {
		return Manifest{}, err
	}
	return clone, nil
}

// Validate ensures required fields are present and the strategy is one of
// the recognized values.
func (m Manifest) Validate() error {
	if m.BaseTemplate == "" {
		return fmt.Errorf("manifest: base_template is required")
	}
	if !m.Rules.ConflictResolution.valid() {
		return fmt.Errorf("manifest: unknown conflict_resolution %q (want error, first-wins, last-wins or merge)", m.Rules.ConflictResolution)
	}
	for idx, ref := range m.Capabilities {
		if ref.Name == "" {
			return fmt.Errorf("manifest: capabilities[%d].name is required", idx)
		}
	}
	return nil
}

// Names returns the requested capability names in declaration order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m.Capabilities))
	for _, ref := range m.Capabilities {
		names = append(names, ref.Name)
	}
	return names
}
