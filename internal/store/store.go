// Package store provides access to capability definitions. The composition
// engine depends only on the Store interface; backends decide where
// definitions live and how they are indexed.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelworks/loom/internal/capability"
)

// Store resolves a named capability against a semver constraint. The empty
// constraint (or "*") matches the highest available version. Lookups are
// the only potentially I/O-bound operation in a composition run, so
// implementations should cache whatever they load.
type Store interface {
	Resolve(ctx context.Context, name, constraint string) (capability.Definition, error)
}

// NotFoundError reports that no capability with the requested name exists.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: capability %s not found", e.Name)
}

// VersionError reports that the capability exists but no version satisfies
// the requested constraint.
type VersionError struct {
	Name       string
	Constraint string
	Available  []string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("store: capability %s has no version satisfying %q (available: %s)",
		e.Name, e.Constraint, strings.Join(e.Available, ", "))
}
