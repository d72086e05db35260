package registry

// Package registry provides immutable catalog snapshots the resolver can query.

import (
	"fmt"
	"sort"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// Memory is an in-memory catalog snapshot. It is safe for concurrent readers
// and never changes after New returns.
type Memory struct {
	available map[string][]*module.Module
	installed map[string]*module.Module
	providers map[string][]string
	ids       []string
}

// New builds a snapshot. Every module is validated; two catalog entries with the
// same identifier and version are rejected.
func New(catalog, installed []*module.Module) (*Memory, error) {
	m := &Memory{
		available: map[string][]*module.Module{},
		installed: map[string]*module.Module{},
		providers: map[string][]string{},
	}
	for _, mod := range catalog {
		if err := mod.Validate(); err != nil {
			return nil, err
		}
		for _, existing := range m.available[mod.Identifier] {
			if existing.Version.Equal(mod.Version) {
				return nil, fmt.Errorf("registry: duplicate catalog entry %s", mod)
			}
		}
		m.available[mod.Identifier] = append(m.available[mod.Identifier], mod)
		for _, name := range mod.ProvidedNames() {
			if !contains(m.providers[name], mod.Identifier) {
				m.providers[name] = append(m.providers[name], mod.Identifier)
			}
		}
	}
	for _, mod := range installed {
		if err := mod.Validate(); err != nil {
			return nil, err
		}
		if _, ok := m.installed[mod.Identifier]; ok {
			return nil, fmt.Errorf("registry: %s installed twice", mod.Identifier)
		}
		m.installed[mod.Identifier] = mod
	}

	for id, versions := range m.available {
		sort.SliceStable(versions, func(i, j int) bool {
			return semver.Compare(versions[i].Version, versions[j].Version) > 0
		})
		m.ids = append(m.ids, id)
	}
	sort.Strings(m.ids)
	for name := range m.providers {
		sort.Strings(m.providers[name])
	}
	return m, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(catalog, installed []*module.Module) *Memory {
	m, err := New(catalog, installed)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Memory) AvailableModules(crit semver.Criteria) []*module.Module {
	out := make([]*module.Module, 0, len(m.ids))
	for _, id := range m.ids {
		if latest, ok := m.LatestAvailable(id, crit); ok {
			out = append(out, latest)
		}
	}
	return out
}

// InstalledModules returns the installed modules sorted by identifier.
func (m *Memory) InstalledModules() []*module.Module {
	out := make([]*module.Module, 0, len(m.installed))
	for _, mod := range m.installed {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

func (m *Memory) Installed(identifier string) (*module.Module, bool) {
	mod, ok := m.installed[identifier]
	return mod, ok
}

func (m *Memory) IsInstalled(identifier string) bool {
	_, ok := m.installed[identifier]
	return ok
}

func (m *Memory) AvailableVersions(identifier string, crit semver.Criteria) []*module.Module {
	out := make([]*module.Module, 0, len(m.available[identifier]))
	for _, mod := range m.available[identifier] {
		if mod.CompatibleWith(crit) {
			out = append(out, mod)
		}
	}
	return out
}

func (m *Memory) LatestAvailable(identifier string, crit semver.Criteria) (*module.Module, bool) {
	for _, mod := range m.available[identifier] {
		if mod.CompatibleWith(crit) {
			return mod, true
		}
	}
	return nil, false
}

func (m *Memory) LatestAvailableWithProvides(name string, crit semver.Criteria) []*module.Module {
	out := make([]*module.Module, 0, len(m.providers[name]))
	for _, id := range m.providers[name] {
		latest, ok := m.LatestAvailable(id, crit)
		if !ok || !latest.ProvidesName(name) {
			continue
		}
		out = append(out, latest)
	}
	return out
}

// FindReverseDependencies returns installed modules whose dependencies are met
// by the installed set today but not once identifiers are gone, repeated until
// nothing else breaks.
func (m *Memory) FindReverseDependencies(identifiers []string) []string {
	all := m.InstalledModules()
	removing := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		removing[id] = true
	}

	for changed := true; changed; {
		changed = false
		remaining := make([]*module.Module, 0, len(all))
		for _, mod := range all {
			if !removing[mod.Identifier] {
				remaining = append(remaining, mod)
			}
		}
		for _, mod := range remaining {
			for _, dep := range mod.Depends {
				if satisfied(dep, all) && !satisfied(dep, remaining) {
					removing[mod.Identifier] = true
					changed = true
					break
				}
			}
		}
	}

	for _, id := range identifiers {
		delete(removing, id)
	}
	out := make([]string, 0, len(removing))
	for id := range removing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) Known(identifier string) bool {
	if _, ok := m.available[identifier]; ok {
		return true
	}
	_, ok := m.installed[identifier]
	return ok
}

func satisfied(rel module.Relationship, mods []*module.Module) bool {
	for _, mod := range mods {
		if rel.Admits(mod) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
