package registry

import (
	"errors"
	"fmt"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
	"github.com/anvil-platform/forge/internal/module"
)

// ErrUnknownInstalled is returned when an instance lists a module version the catalog does not contain.
var ErrUnknownInstalled = errors.New("installed module not in catalog")

// ModuleFromManifest converts a ModuleManifest into a validated Module.
func ModuleFromManifest(mm *gamev1alpha1.ModuleManifest) (*module.Module, error) {
	spec := mm.Spec
	return module.Manifest{
		Identifier:     spec.Module.ID,
		Version:        spec.Module.Version,
		Name:           spec.DisplayName,
		Abstract:       spec.Abstract,
		Provides:       spec.Provides,
		Depends:        relationships(spec.Depends),
		Recommends:     relationships(spec.Recommends),
		Suggests:       relationships(spec.Suggests),
		Supports:       relationships(spec.Supports),
		Conflicts:      relationships(spec.Conflicts),
		GameVersionMin: spec.GameVersion.Min,
		GameVersionMax: spec.GameVersion.Max,
		Kind:           spec.Kind,
	}.Build()
}

// FromManifests builds a snapshot from catalog manifests and an instance's installed set.
func FromManifests(manifests []gamev1alpha1.ModuleManifest, installed []gamev1alpha1.ModuleRef) (*Memory, error) {
	catalog := make([]*module.Module, 0, len(manifests))
	byKey := make(map[string]*module.Module, len(manifests))
	for i := range manifests {
		m, err := ModuleFromManifest(&manifests[i])
		if err != nil {
			return nil, fmt.Errorf("modulemanifest %s: %w", manifests[i].Name, err)
		}
		catalog = append(catalog, m)
		byKey[key(m.Identifier, m.Version.String())] = m
	}

	inst := make([]*module.Module, 0, len(installed))
	for _, ref := range installed {
		m, ok := byKey[key(ref.ID, ref.Version)]
		if !ok {
			m = matchVersion(catalog, ref)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownInstalled, ref.ID, ref.Version)
		}
		inst = append(inst, m)
	}
	return New(catalog, inst)
}

// matchVersion finds ref by semantic equality, so "1.0" matches "1.0.0".
func matchVersion(catalog []*module.Module, ref gamev1alpha1.ModuleRef) *module.Module {
	want, err := module.Manifest{Identifier: ref.ID, Version: ref.Version}.Build()
	if err != nil {
		return nil
	}
	for _, m := range catalog {
		if m.Identifier == ref.ID && m.Version.Equal(want.Version) {
			return m
		}
	}
	return nil
}

func relationships(in []gamev1alpha1.RelationshipDescriptor) []module.Relationship {
	if len(in) == 0 {
		return nil
	}
	out := make([]module.Relationship, 0, len(in))
	for _, r := range in {
		out = append(out, module.Relationship{Name: r.Name, Version: r.Version})
	}
	return out
}

func key(id, version string) string {
	return id + "@" + version
}
