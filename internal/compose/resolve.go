package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/graph"
	"github.com/kestrelworks/loom/internal/manifest"
	"github.com/kestrelworks/loom/internal/store"
)

// resolution is the closed, canonically ordered capability set for one run.
type resolution struct {
	// ordered holds every resolved capability in canonical processing
	// order: prerequisites before dependents, name-sorted within ties, so
	// the order depends only on the set, never on the request order.
	ordered []capability.Definition
	// requestIndex maps capability name to its first position in the
	// request. Transitively discovered capabilities sort after every
	// requested one. Only the ordered strategies consult this.
	requestIndex map[string]int
	// configs carries per-capability configuration from the manifest.
	configs map[string]map[string]any
}

// resolve fetches the requested capabilities and their transitive
// prerequisites, builds the prerequisite graph and establishes the
// canonical order. Returns nil when the run cannot continue; findings are
// recorded on the result either way.
func (e *Engine) resolve(ctx context.Context, m manifest.Manifest, result *Result) (*resolution, error) {
	// Deduplicate request entries by name. The first occurrence is
	// retained; every repeat is a warning, not an error, so composing the
	// same capability twice collapses to composing it once.
	unique := make([]manifest.Ref, 0, len(m.Capabilities))
	firstRef := map[string]manifest.Ref{}
	requestIndex := map[string]int{}
	for _, ref := range m.Capabilities {
		prior, seen := firstRef[ref.Name]
		if !seen {
			firstRef[ref.Name] = ref
			requestIndex[ref.Name] = len(unique)
			unique = append(unique, ref)
			continue
		}
		if prior.Version != ref.Version {
			result.addWarning(CodeDuplicate,
				fmt.Sprintf("capability %s requested with versions %q and %q; keeping %q", ref.Name, prior.Version, ref.Version, prior.Version),
				"Remove the duplicate entry from the capabilities list")
		} else {
			result.addWarning(CodeDuplicate,
				fmt.Sprintf("capability %s requested more than once", ref.Name),
				"Remove the duplicate entry from the capabilities list")
		}
	}

	byName := map[string]capability.Definition{}
	configs := map[string]map[string]any{}
	prereqGraph := graph.New()

	// Fetch the requested set. The store is the only I/O in the pipeline;
	// each distinct capability is fetched exactly once per run.
	pending := make([]capability.Definition, 0, len(unique))
	for _, ref := range unique {
		def, err := e.lookup(ctx, ref.Name, ref.Version, "", result)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, nil
		}
		if len(ref.Config) > 0 {
			for _, cfgErr := range def.ValidateConfig(ref.Config) {
				result.addError(CodeInvalidConfig,
					fmt.Sprintf("capability %s: %v", ref.Name, cfgErr),
					fmt.Sprintf("Fix the config block for '%s' in the manifest", ref.Name))
			}
			configs[ref.Name] = ref.Config
		}
		byName[def.Name] = *def
		prereqGraph.Add(def.Name)
		pending = append(pending, *def)
	}
	if !result.Passed() {
		return nil, nil
	}

	// Close the set under "has all prerequisites present". Prerequisites
	// are matched by name with the wildcard constraint.
	for len(pending) > 0 {
		def := pending[0]
		pending = pending[1:]
		for _, prereq := range def.Prerequisites {
			prereqGraph.AddEdge(prereq, def.Name)
			if _, resolved := byName[prereq]; resolved {
				continue
			}
			resolvedPrereq, err := e.lookup(ctx, prereq, "", def.Name, result)
			if err != nil {
				return nil, err
			}
			if resolvedPrereq == nil {
				return nil, nil
			}
			byName[prereq] = *resolvedPrereq
			pending = append(pending, *resolvedPrereq)
		}
	}

	order, cycle := prereqGraph.TopoSort()
	if cycle != nil {
		result.addError(CodeCircularDependency,
			fmt.Sprintf("circular prerequisite chain: %s", cycle),
			"Break the cycle by removing one of the prerequisite declarations")
		return nil, nil
	}

	ordered := make([]capability.Definition, 0, len(order))
	for _, name := range order {
		ordered = append(ordered, byName[name])
	}
	// Transitively discovered capabilities take request positions after
	// every explicitly listed one, in canonical order, so ordered
	// strategies stay deterministic.
	next := len(unique)
	for _, name := range order {
		if _, requested := requestIndex[name]; !requested {
			requestIndex[name] = next
			next++
		}
	}

	return &resolution{ordered: ordered, requestIndex: requestIndex, configs: configs}, nil
}

// lookup fetches one capability and maps store failures onto validation
// codes. requiredBy is empty for request-listed capabilities and names the
// dependent for transitive prerequisites. A nil definition with nil error
// means the failure was recorded on the result.
func (e *Engine) lookup(ctx context.Context, name, constraint, requiredBy string, result *Result) (*capability.Definition, error) {
	def, err := e.store.Resolve(ctx, name, constraint)
	if err == nil {
		return &def, nil
	}

	var notFound *store.NotFoundError
	if errors.As(err, &notFound) {
		if requiredBy != "" {
			result.addError(CodePrerequisiteMissing,
				fmt.Sprintf("capability %s requires %s, which cannot be resolved", requiredBy, name),
				fmt.Sprintf("Add '%s' to the capabilities list", name))
		} else {
			result.addError(CodeCapabilityNotFound,
				fmt.Sprintf("capability %s is not present in the store", name),
				fmt.Sprintf("Check the spelling of '%s' or add its definition to the store", name))
		}
		return nil, nil
	}

	var versionErr *store.VersionError
	if errors.As(err, &versionErr) {
		result.addError(CodeVersionIncompatibility,
			fmt.Sprintf("capability %s has no version satisfying %q (available: %s)",
				name, versionErr.Constraint, strings.Join(versionErr.Available, ", ")),
			fmt.Sprintf("Relax the constraint %q or publish a matching version of %s", constraint, name))
		return nil, nil
	}

	return nil, fmt.Errorf("compose: resolve %s: %w", name, err)
}
