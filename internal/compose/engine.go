// Package compose implements the composition pipeline: a manifest is
// resolved against a capability store, behavior and contract conflicts are
// detected and settled per the manifest's strategy, and a validated agent
// is instantiated from a base template. Validation findings travel on a
// Result rather than as Go errors; the error return is reserved for
// infrastructure failures such as an unreadable store.
package compose

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrelworks/loom/internal/capability"
	"github.com/kestrelworks/loom/internal/logbook"
	"github.com/kestrelworks/loom/internal/manifest"
	"github.com/kestrelworks/loom/internal/store"
	"github.com/kestrelworks/loom/internal/template"
)

// Engine wires a capability store and a template registry into the
// composition pipeline. It holds no per-run state; one Engine serves
// concurrent runs.
type Engine struct {
	store     store.Store
	templates template.Registry
	log       *logbook.Logbook
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogbook attaches a logbook that records pipeline progress per run.
func WithLogbook(log *logbook.Logbook) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New builds an engine over the given store and template registry.
func New(st store.Store, templates template.Registry, opts ...Option) *Engine {
	e := &Engine{store: st, templates: templates}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compose runs the full pipeline for one manifest. The returned Result is
// always populated, carries a fresh run ID and reflects every finding of
// the run. The Agent is non-nil whenever the run produced no errors;
// warnings alone do not block instantiation. A non-nil error means the
// pipeline itself broke and the Result is best-effort.
func (e *Engine) Compose(ctx context.Context, m manifest.Manifest) (*Agent, Result, error) {
	result := Result{RunID: uuid.NewString()}

	normalized, err := m.Normalized()
	if err != nil {
		result.finalize()
		return nil, result, err
	}
	strategy := normalized.Rules.ConflictResolution
	e.log.Stage(result.RunID, "start", "template=%s capabilities=%d strategy=%s",
		normalized.BaseTemplate, len(normalized.Capabilities), strategy)

	res, err := e.resolve(ctx, normalized, &result)
	if err != nil {
		result.finalize()
		return nil, result, err
	}
	if res == nil {
		result.finalize()
		e.log.Stage(result.RunID, "resolve", "failed: %v", result.ErrorCodes())
		return nil, result, nil
	}
	e.log.Stage(result.RunID, "resolve", "resolved %d capabilities", len(res.ordered))

	behaviors := resolveBehaviors(res, strategy, &result)
	contracts := mergeContracts(res, &result)

	result.Capabilities = make([]capability.Definition, 0, len(res.ordered))
	for _, def := range res.ordered {
		result.Capabilities = append(result.Capabilities, def.Clone())
	}
	result.Contracts = contracts

	if !result.Passed() {
		result.finalize()
		e.log.Stage(result.RunID, "validate", "failed: %v", result.ErrorCodes())
		return nil, result, nil
	}

	base, err := e.templates.Resolve(normalized.BaseTemplate)
	if err != nil {
		var unknown *template.UnknownTemplateError
		if errors.As(err, &unknown) {
			result.addError(CodeUnknownBaseTemplate,
				fmt.Sprintf("base template %s is not registered", normalized.BaseTemplate),
				"Register the template, or reference an existing one")
			result.finalize()
			e.log.Stage(result.RunID, "instantiate", "unknown template %s", normalized.BaseTemplate)
			return nil, result, nil
		}
		result.finalize()
		return nil, result, fmt.Errorf("compose: resolve template %s: %w", normalized.BaseTemplate, err)
	}

	agent := &Agent{
		Template:     base,
		Capabilities: result.Capabilities,
		Behaviors:    behaviors,
		Contracts:    contracts,
	}
	if len(res.configs) > 0 {
		agent.Config = res.configs
	}

	result.finalize()
	e.log.Stage(result.RunID, "instantiate", "agent ready: %d behaviors, %d contracts, status=%s",
		len(behaviors), len(contracts), result.Status)
	return agent, result, nil
}

// Validate runs the pipeline without instantiating an agent. It reports the
// same findings Compose would.
func (e *Engine) Validate(ctx context.Context, m manifest.Manifest) (Result, error) {
	_, result, err := e.Compose(ctx, m)
	return result, err
}

// Extend composes additional capabilities onto an existing agent. The
// agent's capabilities re-enter the pipeline pinned to their resolved
// versions, so extending in steps yields the same agent as composing the
// full list at once.
func (e *Engine) Extend(ctx context.Context, agent *Agent, refs []manifest.Ref, rules manifest.CompositionRule) (*Agent, Result, error) {
	if agent == nil {
		return nil, Result{}, fmt.Errorf("compose: extend: agent is nil")
	}
	m := manifest.Manifest{
		BaseTemplate: agent.Template.ID,
		Capabilities: append(agent.Refs(), refs...),
		Rules:        rules,
	}
	return e.Compose(ctx, m)
}
