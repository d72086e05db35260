package resolver

import (
	"strings"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/registry"
	"github.com/anvil-platform/forge/internal/semver"
)

type modOpt func(*module.Module)

func mod(id, version string, opts ...modOpt) *module.Module {
	m := &module.Module{Identifier: id, Name: id, Version: semver.MustParseVersion(version)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// rels parses "Name" or "Name <constraint>" entries.
func rels(specs []string) []module.Relationship {
	out := make([]module.Relationship, 0, len(specs))
	for _, s := range specs {
		name, constraint, _ := strings.Cut(s, " ")
		out = append(out, module.Relationship{Name: name, Version: constraint})
	}
	return out
}

func provides(names ...string) modOpt {
	return func(m *module.Module) { m.Provides = append(m.Provides, names...) }
}

func depends(specs ...string) modOpt {
	return func(m *module.Module) { m.Depends = append(m.Depends, rels(specs)...) }
}

func recommends(specs ...string) modOpt {
	return func(m *module.Module) { m.Recommends = append(m.Recommends, rels(specs)...) }
}

func suggests(specs ...string) modOpt {
	return func(m *module.Module) { m.Suggests = append(m.Suggests, rels(specs)...) }
}

func conflicts(specs ...string) modOpt {
	return func(m *module.Module) { m.Conflicts = append(m.Conflicts, rels(specs)...) }
}

func metapackage() modOpt {
	return func(m *module.Module) { m.Metapackage = true }
}

func maxGame(v string) modOpt {
	return func(m *module.Module) { m.GameVersionMax = semver.MustParseVersion(v) }
}

func ids(mods []*module.Module) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Identifier)
	}
	return out
}

func latest(reg Registry, id string) *module.Module {
	m, ok := reg.LatestAvailable(id, semver.Criteria{})
	if !ok {
		panic("fixture missing " + id)
	}
	return m
}

// engineCatalog has A depending on the virtual Engine, provided by B and C.
func engineCatalog(installed ...*module.Module) *registry.Memory {
	return registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Engine")),
		mod("B", "1.0.0", provides("Engine")),
		mod("C", "1.0.0", provides("Engine")),
	}, installed)
}
