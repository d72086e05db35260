package module

import (
	"strings"

	"github.com/anvil-platform/forge/internal/semver"
)

// Manifest is the serialized form of a Module, as found in catalog files and CRDs.
type Manifest struct {
	Identifier     string         `json:"identifier" yaml:"identifier"`
	Version        string         `json:"version" yaml:"version"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	Abstract       string         `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Provides       []string       `json:"provides,omitempty" yaml:"provides,omitempty"`
	Depends        []Relationship `json:"depends,omitempty" yaml:"depends,omitempty"`
	Recommends     []Relationship `json:"recommends,omitempty" yaml:"recommends,omitempty"`
	Suggests       []Relationship `json:"suggests,omitempty" yaml:"suggests,omitempty"`
	Supports       []Relationship `json:"supports,omitempty" yaml:"supports,omitempty"`
	Conflicts      []Relationship `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	GameVersionMin string         `json:"gameVersionMin,omitempty" yaml:"game_version_min,omitempty"`
	GameVersionMax string         `json:"gameVersionMax,omitempty" yaml:"game_version_max,omitempty"`
	Kind           string         `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Build parses and validates the manifest.
func (m Manifest) Build() (*Module, error) {
	id := strings.TrimSpace(m.Identifier)
	out := &Module{
		Identifier:  id,
		Name:        m.Name,
		Abstract:    m.Abstract,
		Provides:    append([]string(nil), m.Provides...),
		Depends:     append([]Relationship(nil), m.Depends...),
		Recommends:  append([]Relationship(nil), m.Recommends...),
		Suggests:    append([]Relationship(nil), m.Suggests...),
		Supports:    append([]Relationship(nil), m.Supports...),
		Conflicts:   append([]Relationship(nil), m.Conflicts...),
		Metapackage: strings.EqualFold(m.Kind, "metapackage"),
	}
	if out.Name == "" {
		out.Name = id
	}

	var err error
	if strings.TrimSpace(m.Version) != "" {
		if out.Version, err = semver.ParseVersion(m.Version); err != nil {
			return nil, &BadMetadataError{Module: id, Reason: err.Error()}
		}
	}
	if strings.TrimSpace(m.GameVersionMin) != "" {
		if out.GameVersionMin, err = semver.ParseVersion(m.GameVersionMin); err != nil {
			return nil, &BadMetadataError{Module: id, Reason: err.Error()}
		}
	}
	if strings.TrimSpace(m.GameVersionMax) != "" {
		if out.GameVersionMax, err = semver.ParseVersion(m.GameVersionMax); err != nil {
			return nil, &BadMetadataError{Module: id, Reason: err.Error()}
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
