package capability

import "testing"

func TestValidateRequiresIdentity(t *testing.T) {
	def := Definition{Version: "1.0.0"}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected missing name to fail validation")
	}
	def = Definition{Name: "memory-management"}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected missing version to fail validation")
	}
}

func TestValidateRejectsSelfPrerequisite(t *testing.T) {
	def := Definition{
		Name:          "domain-knowledge",
		Version:       "1.0.0",
		Prerequisites: []string{"domain-knowledge"},
	}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected self-prerequisite to fail validation")
	}
}

func TestValidateRejectsDuplicateBehaviors(t *testing.T) {
	def := Definition{
		Name:    "planner",
		Version: "1.0.0",
		Behaviors: []Behavior{
			{Name: "step_back"},
			{Name: "step_back"},
		},
	}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected duplicate behavior to fail validation")
	}
}

func TestNormalizedSortsPrerequisites(t *testing.T) {
	def := Definition{
		Name:          "planner",
		Version:       "1.0.0",
		Prerequisites: []string{"zeta", " alpha ", "zeta", ""},
	}
	normalized := def.Normalized()
	if len(normalized.Prerequisites) != 2 {
		t.Fatalf("expected 2 prerequisites, got %v", normalized.Prerequisites)
	}
	if normalized.Prerequisites[0] != "alpha" || normalized.Prerequisites[1] != "zeta" {
		t.Fatalf("unexpected order: %v", normalized.Prerequisites)
	}
}

func TestCloneIsDeep(t *testing.T) {
	def := Definition{
		Name:          "planner",
		Version:       "1.0.0",
		Prerequisites: []string{"memory-management"},
		Behaviors:     []Behavior{{Name: "step_back", Triggers: []string{"stuck"}}},
	}
	clone := def.Clone()
	clone.Prerequisites[0] = "changed"
	clone.Behaviors[0].Triggers[0] = "changed"
	if def.Prerequisites[0] != "memory-management" {
		t.Fatalf("clone shared prerequisite slice")
	}
	if def.Behaviors[0].Triggers[0] != "stuck" {
		t.Fatalf("clone shared trigger slice")
	}
}

func TestValidateConfig(t *testing.T) {
	def := Definition{
		Name:    "planner",
		Version: "1.0.0",
		ConfigSchema: ConfigSchema{
			"depth":   {Type: "int", Required: true},
			"verbose": {Type: "bool"},
		},
	}
	errs := def.ValidateConfig(map[string]any{"verbose": "yes"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 config errors, got %v", errs)
	}
	if errs := def.ValidateConfig(map[string]any{"depth": 3}); len(errs) != 0 {
		t.Fatalf("expected valid config, got %v", errs)
	}
	errs = def.ValidateConfig(map[string]any{"depth": 3, "mystery": true})
	if len(errs) != 1 {
		t.Fatalf("expected undeclared field error, got %v", errs)
	}
}

func TestOutputCompatibility(t *testing.T) {
	outline := Output{Type: "outline"}
	detail := Output{Type: "detail"}
	if outline.Compatible(detail) {
		t.Fatalf("outline and detail should be incompatible")
	}
	if !outline.Compatible(Output{}) {
		t.Fatalf("unset output should be compatible with anything")
	}
	if !outline.Compatible(Output{Type: "outline", Description: "different"}) {
		t.Fatalf("matching types should be compatible")
	}
}

func TestContractEqual(t *testing.T) {
	a := Contract{Name: "no-secrets", Assertion: "never emit credentials"}
	b := Contract{Name: "no-secrets", Assertion: "never emit credentials"}
	c := Contract{Name: "no-secrets", Assertion: "redact credentials"}
	if !a.Equal(b) {
		t.Fatalf("identical contracts should compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("differing assertions should not compare equal")
	}
}
