package capability

import (
	"fmt"
	"sort"
	"strings"
)

// Definition describes a named, versioned capability: the prerequisites it
// needs, the behaviors it contributes and the contracts it asserts. The
// struct mirrors the on-disk schema under the capability store directory
// and is treated as read-only once loaded.
type Definition struct {
	Name          string       `json:"name" yaml:"name"`
	Version       string       `json:"version" yaml:"version"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	Prerequisites []string     `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Behaviors     []Behavior   `json:"behaviors,omitempty" yaml:"behaviors,omitempty"`
	Contracts     []Contract   `json:"contracts,omitempty" yaml:"contracts,omitempty"`
	ConfigSchema  ConfigSchema `json:"config_schema,omitempty" yaml:"config_schema,omitempty"`
}

// Behavior is a named unit of trigger+protocol+output that a capability
// contributes to the composed agent.
type Behavior struct {
	Name     string   `json:"name" yaml:"name"`
	Triggers []string `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Protocol []string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Output   Output   `json:"output,omitempty" yaml:"output,omitempty"`
}

// Output declares what a behavior produces. Two outputs are structurally
// compatible when their types match (or one side leaves the type unset).
type Output struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Contract is a named invariant the composed agent must uphold. Contracts
// are matched by name and are never overridden during composition.
type Contract struct {
	Name      string `json:"name" yaml:"name"`
	Assertion string `json:"assertion" yaml:"assertion"`
}

// ConfigSchema declares the configuration fields a capability accepts.
type ConfigSchema map[string]FieldSpec

// FieldSpec constrains a single configuration field.
type FieldSpec struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Key returns the identity of the definition as name@version.
func (def Definition) Key() string {
	return def.Name + "@" + def.Version
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{
		Name:        def.Name,
		Version:     def.Version,
		Description: def.Description,
	}
	if len(def.Prerequisites) > 0 {
		clone.Prerequisites = make([]string, len(def.Prerequisites))
		copy(clone.Prerequisites, def.Prerequisites)
	}
	if len(def.Behaviors) > 0 {
		clone.Behaviors = make([]Behavior, len(def.Behaviors))
		for i, behavior := range def.Behaviors {
			clone.Behaviors[i] = behavior.Clone()
		}
	}
	if len(def.Contracts) > 0 {
		clone.Contracts = make([]Contract, len(def.Contracts))
		copy(clone.Contracts, def.Contracts)
	}
	if len(def.ConfigSchema) > 0 {
		clone.ConfigSchema = make(ConfigSchema, len(def.ConfigSchema))
		for key, spec := range def.ConfigSchema {
			clone.ConfigSchema[key] = spec
		}
	}
	return clone
}

// Clone returns a deep copy of the behavior.
func (b Behavior) Clone() Behavior {
	clone := Behavior{Name: b.Name, Output: b.Output}
	if len(b.Triggers) > 0 {
		clone.Triggers = make([]string, len(b.Triggers))
		copy(clone.Triggers, b.Triggers)
	}
	if len(b.Protocol) > 0 {
		clone.Protocol = make([]string, len(b.Protocol))
		copy(clone.Protocol, b.Protocol)
	}
	return clone
}

// Normalized returns a trimmed copy of the definition with sorted,
// deduplicated prerequisites.
func (def Definition) Normalized() Definition {
	clone := def.Clone()
	clone.Name = strings.TrimSpace(clone.Name)
	clone.Version = strings.TrimSpace(clone.Version)
	clone.Description = strings.TrimSpace(clone.Description)
	clone.Prerequisites = normalizeNames(clone.Prerequisites)
	for i, behavior := range clone.Behaviors {
		behavior.Name = strings.TrimSpace(behavior.Name)
		behavior.Output.Type = strings.TrimSpace(behavior.Output.Type)
		clone.Behaviors[i] = behavior
	}
	for i, contract := range clone.Contracts {
		contract.Name = strings.TrimSpace(contract.Name)
		contract.Assertion = strings.TrimSpace(contract.Assertion)
		clone.Contracts[i] = contract
	}
	return clone
}

// Validate ensures the definition is well-formed: identity present, no
// duplicate behavior or contract names within the capability, no
// self-prerequisite.
func (def Definition) Validate() error {
	normalized := def.Normalized()
	if normalized.Name == "" {
		return fmt.Errorf("capability: name is required")
	}
	if normalized.Version == "" {
		return fmt.Errorf("capability %s: version is required", normalized.Name)
	}
	for _, prereq := range normalized.Prerequisites {
		if prereq == normalized.Name {
			return fmt.Errorf("capability %s: lists itself as a prerequisite", normalized.Name)
		}
	}
	seenBehaviors := map[string]struct{}{}
	for idx, behavior := range normalized.Behaviors {
		if behavior.Name == "" {
			return fmt.Errorf("capability %s: behaviors[%d].name is required", normalized.Name, idx)
		}
		if _, exists := seenBehaviors[behavior.Name]; exists {
			return fmt.Errorf("capability %s: duplicate behavior %s", normalized.Name, behavior.Name)
		}
		seenBehaviors[behavior.Name] = struct{}{}
	}
	seenContracts := map[string]struct{}{}
	for idx, contract := range normalized.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("capability %s: contracts[%d].name is required", normalized.Name, idx)
		}
		if contract.Assertion == "" {
			return fmt.Errorf("capability %s: contract %s: assertion is required", normalized.Name, contract.Name)
		}
		if _, exists := seenContracts[contract.Name]; exists {
			return fmt.Errorf("capability %s: duplicate contract %s", normalized.Name, contract.Name)
		}
		seenContracts[contract.Name] = struct{}{}
	}
	for field, spec := range normalized.ConfigSchema {
		if err := spec.validate(); err != nil {
			return fmt.Errorf("capability %s: config_schema[%s]: %w", normalized.Name, field, err)
		}
	}
	return nil
}

// ValidateConfig checks a configuration map against the declared schema.
// All violations are collected so a single pass reports everything.
func (def Definition) ValidateConfig(cfg map[string]any) []error {
	var errs []error
	for field, spec := range def.ConfigSchema {
		value, present := cfg[field]
		if !present {
			if spec.Required {
				errs = append(errs, fmt.Errorf("config field %s is required", field))
			}
			continue
		}
		if spec.Type != "" && !matchesType(value, spec.Type) {
			errs = append(errs, fmt.Errorf("config field %s must be of type %s", field, spec.Type))
		}
	}
	for field := range cfg {
		if len(def.ConfigSchema) == 0 {
			break
		}
		if _, known := def.ConfigSchema[field]; !known {
			errs = append(errs, fmt.Errorf("config field %s is not declared by %s", field, def.Name))
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errs
}

// Equal reports whether two contracts carry the same name and assertion.
func (c Contract) Equal(other Contract) bool {
	return c.Name == other.Name && c.Assertion == other.Assertion
}

// Compatible reports whether two outputs can be merged: equal types, or
// one side unset.
func (o Output) Compatible(other Output) bool {
	if o.Type == "" || other.Type == "" {
		return true
	}
	return o.Type == other.Type
}

// IsZero reports whether the output carries no declaration at all.
func (o Output) IsZero() bool {
	return o.Type == "" && o.Description == ""
}

func (spec FieldSpec) validate() error {
	switch spec.Type {
	case "", "string", "int", "float", "bool", "list", "map":
		return nil
	default:
		return fmt.Errorf("unknown field type %q", spec.Type)
	}
}

func matchesType(value any, fieldType string) bool {
	switch fieldType {
	case "string":
		_, ok := value.(string)
		return ok
	case "int":
		switch value.(type) {
		case int, int64:
			return true
		}
		return false
	case "float":
		switch value.(type) {
		case float32, float64, int, int64:
			return true
		}
		return false
	case "bool":
		_, ok := value.(bool)
		return ok
	case "list":
		_, ok := value.([]any)
		return ok
	case "map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func normalizeNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
