package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a parsed semantic version. Thin wrapper around
// github.com/Masterminds/semver/v3 so callers never touch the library
// types directly.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint such as "^1.0.0",
// ">=1.2.0 <2.0.0" or "~1.4". The empty string and "*" match anything.
type Constraint struct {
	c *mm.Constraints
}

// ParseVersion parses a version string.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion panics on a malformed version. Test helper.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseConstraint parses a constraint expression. Empty input is treated
// as the wildcard constraint.
func ParseConstraint(raw string) (Constraint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = "*"
	}
	c, err := mm.NewConstraint(trimmed)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c}, nil
}

// Satisfies reports whether v matches c.
func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare returns -1, 0 or 1 ordering a against b. Zero versions sort first.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// String renders the canonical form, or "" for the zero Version.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// MaxSatisfying returns the highest candidate that satisfies c.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
