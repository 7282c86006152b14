package compose

import (
	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/manifest"
	"github.com/kestrelworks/loom/internal/template"
)

// Agent is the product of a successful composition: a base template with
// the resolved capability set, the surviving behaviors and the merged
// contract list attached. Agents are values; extending one composes a new
// agent rather than mutating the original.
type Agent struct {
	Template     template.Template         `json:"template" yaml:"template"`
	Capabilities []capability.Definition   `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Behaviors    []capability.Behavior     `json:"behaviors,omitempty" yaml:"behaviors,omitempty"`
	Contracts    []capability.Contract     `json:"contracts,omitempty" yaml:"contracts,omitempty"`
	Config       map[string]map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// CapabilityNames returns the names of the attached capabilities in their
// canonical order.
func (a Agent) CapabilityNames() []string {
	names := make([]string, 0, len(a.Capabilities))
	for _, def := range a.Capabilities {
		names = append(names, def.Name)
	}
	return names
}

// Has reports whether the agent carries a capability with the given name.
func (a Agent) Has(name string) bool {
	for _, def := range a.Capabilities {
		if def.Name == name {
			return true
		}
	}
	return false
}

// Refs re-expresses the agent's capability set as manifest references with
// versions pinned to the exact resolved releases. Feeding these back into a
// manifest reproduces this agent.
func (a Agent) Refs() []manifest.Ref {
	refs := make([]manifest.Ref, 0, len(a.Capabilities))
	for _, def := range a.Capabilities {
		ref := manifest.Ref{Name: def.Name, Version: def.Version}
		if cfg, ok := a.Config[def.Name]; ok {
			ref.Config = make(map[string]any, len(cfg))
			for key, value := range cfg {
				ref.Config[key] = value
			}
		}
		refs = append(refs, ref)
	}
	return refs
}
