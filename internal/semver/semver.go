package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3. Parsing is
// loose, so "1.2" and "v1.2.0" are both accepted.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint.
//
// Examples:
// - ">=1.2.0 <2.0.0"
// - "^1.0.0"
// - "~1.4"
type Constraint struct {
	c   *mm.Constraints
	raw string
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseConstraint parses raw. An empty constraint matches any version.
func ParseConstraint(raw string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "*"
	}
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c, raw: raw}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Equal reports whether a and b denote the same version.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0
}

func (c Constraint) String() string {
	return c.raw
}

// Any reports whether c accepts every version.
func (c Constraint) Any() bool {
	return c.c == nil || c.raw == "*"
}

func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
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

// MaxSatisfying returns the highest version in candidates that satisfies c.
//
// If multiple versions are equal, the first encountered wins.
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

// Criteria is the set of game versions an instance accepts.
//
// The zero Criteria accepts everything.
type Criteria struct {
	versions []Version
}

func NewCriteria(versions ...Version) Criteria {
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if !v.IsZero() {
			out = append(out, v)
		}
	}
	return Criteria{versions: out}
}

// ParseCriteria parses each raw game version.
func ParseCriteria(raw ...string) (Criteria, error) {
	versions := make([]Version, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		v, err := ParseVersion(r)
		if err != nil {
			return Criteria{}, err
		}
		versions = append(versions, v)
	}
	return NewCriteria(versions...), nil
}

func (c Criteria) IsZero() bool {
	return len(c.versions) == 0
}

func (c Criteria) Versions() []Version {
	return append([]Version(nil), c.versions...)
}

func (c Criteria) String() string {
	if c.IsZero() {
		return "any"
	}
	parts := make([]string, 0, len(c.versions))
	for _, v := range c.versions {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}

// Admits reports whether any accepted game version lies within [min, max].
// A zero bound is open.
func (c Criteria) Admits(min, max Version) bool {
	if c.IsZero() {
		return true
	}
	for _, v := range c.versions {
		if !min.IsZero() && Compare(v, min) < 0 {
			continue
		}
		if !max.IsZero() && Compare(v, max) > 0 {
			continue
		}
		return true
	}
	return false
}
