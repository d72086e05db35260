package module

// Package module holds the catalog data model the resolver works on.
//
// Modules are immutable once built; every registry hands out shared pointers.

import (
	"fmt"
	"strings"

	"github.com/anvil-platform/forge/internal/semver"
)

// Module is one released version of a mod.
type Module struct {
	Identifier string
	Version    semver.Version
	Name       string
	Abstract   string

	// Provides lists virtual capability names this module satisfies in addition to its identifier.
	Provides []string

	Depends    []Relationship
	Recommends []Relationship
	Suggests   []Relationship
	Supports   []Relationship
	Conflicts  []Relationship

	// GameVersionMin and GameVersionMax bound the game versions the module runs on. Zero is open.
	GameVersionMin semver.Version
	GameVersionMax semver.Version

	// Metapackage modules carry no payload of their own.
	Metapackage bool
}

// Relationship names another module or capability, optionally with a version constraint.
type Relationship struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

func (r Relationship) String() string {
	if strings.TrimSpace(r.Version) == "" {
		return r.Name
	}
	return fmt.Sprintf("%s %s", r.Name, r.Version)
}

// Constraint parses the relationship's version constraint. An empty constraint matches any version.
func (r Relationship) Constraint() (semver.Constraint, error) {
	return semver.ParseConstraint(r.Version)
}

// AdmitsVersion reports whether v satisfies the relationship's constraint.
func (r Relationship) AdmitsVersion(v semver.Version) bool {
	c, err := r.Constraint()
	if err != nil {
		return false
	}
	if c.Any() {
		return !v.IsZero()
	}
	return semver.Satisfies(v, c)
}

// Admits reports whether m satisfies the relationship.
//
// The version constraint only applies when m is named directly; a module that
// satisfies the name through its provides list matches regardless of version.
func (r Relationship) Admits(m *Module) bool {
	if m == nil {
		return false
	}
	if m.Identifier == r.Name {
		return r.AdmitsVersion(m.Version)
	}
	return m.ProvidesName(r.Name)
}

func (m *Module) String() string {
	if m == nil {
		return "<nil>"
	}
	if m.Version.IsZero() {
		return m.Identifier
	}
	return fmt.Sprintf("%s %s", m.Identifier, m.Version)
}

// ProvidesName reports whether name is m's identifier or one of its provided capabilities.
func (m *Module) ProvidesName(name string) bool {
	if m.Identifier == name {
		return true
	}
	for _, p := range m.Provides {
		if p == name {
			return true
		}
	}
	return false
}

// ProvidedNames returns the identifier followed by every provided capability.
func (m *Module) ProvidedNames() []string {
	out := make([]string, 0, len(m.Provides)+1)
	out = append(out, m.Identifier)
	for _, p := range m.Provides {
		if p != m.Identifier {
			out = append(out, p)
		}
	}
	return out
}

// ConflictsWith reports whether m declares a conflict matching other.
// A module never conflicts with itself.
func (m *Module) ConflictsWith(other *Module) bool {
	if m == nil || other == nil || m.Identifier == other.Identifier {
		return false
	}
	for _, c := range m.Conflicts {
		if c.Admits(other) {
			return true
		}
	}
	return false
}

// CompatibleWith reports whether m runs on any of the game versions in crit.
func (m *Module) CompatibleWith(crit semver.Criteria) bool {
	return crit.Admits(m.GameVersionMin, m.GameVersionMax)
}

// Validate checks that m's metadata can be resolved against.
func (m *Module) Validate() error {
	if m == nil {
		return &BadMetadataError{Reason: "module is nil"}
	}
	if strings.TrimSpace(m.Identifier) == "" {
		return &BadMetadataError{Module: m.Identifier, Reason: "identifier is empty"}
	}
	if m.Version.IsZero() {
		return &BadMetadataError{Module: m.Identifier, Reason: "version is missing"}
	}
	if !m.GameVersionMin.IsZero() && !m.GameVersionMax.IsZero() && semver.Compare(m.GameVersionMin, m.GameVersionMax) > 0 {
		return &BadMetadataError{
			Module: m.Identifier,
			Reason: fmt.Sprintf("game version minimum %s is above maximum %s", m.GameVersionMin, m.GameVersionMax),
		}
	}
	for _, kind := range Kinds() {
		for _, rel := range m.Relationships(kind) {
			if strings.TrimSpace(rel.Name) == "" {
				return &BadMetadataError{Module: m.Identifier, Reason: fmt.Sprintf("%s entry has no name", kind)}
			}
			if _, err := rel.Constraint(); err != nil {
				return &BadMetadataError{Module: m.Identifier, Reason: fmt.Sprintf("%s %s: %v", kind, rel.Name, err)}
			}
		}
	}
	return nil
}
