package compose

import (
	"fmt"
	"sort"

	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/manifest"
)

// behaviorOwner tracks which capability currently owns a behavior name and
// the behavior definition that will survive resolution.
type behaviorOwner struct {
	capName      string
	requestIndex int
	behavior     capability.Behavior
}

// resolveBehaviors walks capabilities in canonical order, records every
// behavior in the behavior map and applies the conflict-resolution
// strategy to collisions. All capabilities are scanned even after a fatal
// conflict so one run reports the complete set of overlaps.
func resolveBehaviors(res *resolution, strategy manifest.Strategy, result *Result) []capability.Behavior {
	owners := map[string]*behaviorOwner{}
	var names []string

	for _, def := range res.ordered {
		for _, behavior := range def.Behaviors {
			owner, exists := owners[behavior.Name]
			if !exists {
				owners[behavior.Name] = &behaviorOwner{
					capName:      def.Name,
					requestIndex: res.requestIndex[def.Name],
					behavior:     behavior.Clone(),
				}
				names = append(names, behavior.Name)
				continue
			}

			switch strategy {
			case manifest.StrategyError:
				result.addError(CodeBehaviorOverlap,
					fmt.Sprintf("behavior %s declared by both %s and %s", behavior.Name, owner.capName, def.Name),
					"Pick a conflict_resolution strategy other than 'error', or drop one of the capabilities")

			case manifest.StrategyFirstWins:
				if res.requestIndex[def.Name] < owner.requestIndex {
					owner.capName = def.Name
					owner.requestIndex = res.requestIndex[def.Name]
					owner.behavior = behavior.Clone()
				}

			case manifest.StrategyLastWins:
				if res.requestIndex[def.Name] > owner.requestIndex {
					owner.capName = def.Name
					owner.requestIndex = res.requestIndex[def.Name]
					owner.behavior = behavior.Clone()
				}

			case manifest.StrategyMerge:
				if !owner.behavior.Output.Compatible(behavior.Output) {
					// This behavior alone reverts to error semantics;
					// every other behavior keeps merging independently.
					result.addError(CodeBehaviorOverlap,
						fmt.Sprintf("behavior %s cannot be merged: %s and %s declare incompatible outputs (%s vs %s)",
							behavior.Name, owner.capName, def.Name, owner.behavior.Output.Type, behavior.Output.Type),
						"Align the output types, or switch to a first-wins/last-wins strategy")
					continue
				}
				owner.behavior = mergeBehaviors(owner.behavior, behavior)
			}
		}
	}

	sort.Strings(names)
	behaviors := make([]capability.Behavior, 0, len(names))
	for _, name := range names {
		behaviors = append(behaviors, owners[name].behavior)
	}
	return behaviors
}

// mergeBehaviors unions triggers and concatenates protocol steps. Both
// inputs arrive in canonical order, so the merged protocol is identical no
// matter how the request listed the capabilities.
func mergeBehaviors(base, extra capability.Behavior) capability.Behavior {
	merged := base.Clone()

	seen := make(map[string]struct{}, len(merged.Triggers))
	for _, trigger := range merged.Triggers {
		seen[trigger] = struct{}{}
	}
	for _, trigger := range extra.Triggers {
		if _, dup := seen[trigger]; dup {
			continue
		}
		seen[trigger] = struct{}{}
		merged.Triggers = append(merged.Triggers, trigger)
	}
	sort.Strings(merged.Triggers)

	merged.Protocol = append(merged.Protocol, extra.Protocol...)

	if merged.Output.IsZero() {
		merged.Output = extra.Output
	}
	return merged
}
