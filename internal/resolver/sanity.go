package resolver

import (
	"fmt"
	"sort"

	"github.com/anvil-platform/forge/internal/module"
)

// ConsistencyErrors scans mods for unsatisfied dependencies and declared conflicts.
// A module never conflicts with itself, even through a capability it provides.
func ConsistencyErrors(mods []*module.Module) []string {
	sorted := append([]*module.Module(nil), mods...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Identifier < sorted[j].Identifier
	})

	providers := map[string][]*module.Module{}
	for _, m := range sorted {
		for _, name := range m.ProvidedNames() {
			providers[name] = append(providers[name], m)
		}
	}

	var problems []string
	for _, m := range sorted {
		for _, dep := range m.Depends {
			if !anyAdmits(dep, providers[dep.Name]) {
				problems = append(problems, fmt.Sprintf("%s has an unsatisfied dependency: %s is not installed", m.Identifier, dep))
			}
		}
	}
	for _, m := range sorted {
		for _, rel := range m.Conflicts {
			for _, other := range providers[rel.Name] {
				if other.Identifier == m.Identifier || !rel.Admits(other) {
					continue
				}
				problems = append(problems, fmt.Sprintf("%s conflicts with %s", m.Identifier, other.Identifier))
			}
		}
	}
	return problems
}

// EnforceConsistency returns an InconsistentError if mods is not self-consistent.
func EnforceConsistency(mods []*module.Module) error {
	if problems := ConsistencyErrors(mods); len(problems) > 0 {
		return inconsistent(problems...)
	}
	return nil
}

func anyAdmits(rel module.Relationship, mods []*module.Module) bool {
	for _, m := range mods {
		if rel.Admits(m) {
			return true
		}
	}
	return false
}
