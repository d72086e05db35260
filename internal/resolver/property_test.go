package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/registry"
	"github.com/anvil-platform/forge/internal/semver"
)

// randomCatalog draws a catalog of plain modules M* and providers P* of the
// virtual Cap. Plain modules may depend on each other in any direction, so
// cycles occur. Providers are never named directly, so at most one of them
// can enter a closure.
func randomCatalog(t *rapid.T) *registry.Memory {
	n := rapid.IntRange(1, 8).Draw(t, "modules")
	providers := rapid.IntRange(0, 3).Draw(t, "providers")
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("M%d", i)
	}

	catalog := make([]*module.Module, 0, n+providers)
	for i, name := range names {
		m := mod(name, "1.0.0")
		for j, other := range names {
			if j == i {
				continue
			}
			if rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("%s-depends-%s", name, other)) == 0 {
				m.Depends = append(m.Depends, module.Relationship{Name: other})
			}
			if j > i && rapid.IntRange(0, 7).Draw(t, fmt.Sprintf("%s-conflicts-%s", name, other)) == 0 {
				m.Conflicts = append(m.Conflicts, module.Relationship{Name: other})
			}
		}
		if rapid.IntRange(0, 4).Draw(t, name+"-depends-cap") == 0 {
			m.Depends = append(m.Depends, module.Relationship{Name: "Cap"})
		}
		catalog = append(catalog, m)
	}
	for i := 0; i < providers; i++ {
		p := mod(fmt.Sprintf("P%d", i), "1.0.0", provides("Cap"))
		for _, other := range names {
			if rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("P%d-depends-%s", i, other)) == 0 {
				p.Depends = append(p.Depends, module.Relationship{Name: other})
			}
		}
		catalog = append(catalog, p)
	}
	return registry.MustNew(catalog, nil)
}

func TestResolve_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := randomCatalog(t)
		all := reg.AvailableModules(semver.Criteria{})
		root := all[rapid.IntRange(0, len(all)-1).Draw(t, "root")]
		pick := ProviderChooserFunc(func(_ context.Context, req ProviderRequest) (*module.Module, error) {
			return rapid.SampledFrom(req.Candidates).Draw(t, "provider"), nil
		})
		r := NewDefault(reg, pick, logr.Discard())

		list, err := r.Resolve(context.Background(), Request{Install: []*module.Module{root}})
		if err != nil {
			require.Contains(t, []string{"module_not_found", "dependency_not_satisfied", "inconsistent"}, KindOf(err))
			return
		}
		mods := list.Modules()

		seen := map[string]bool{}
		for _, m := range mods {
			require.False(t, seen[m.Identifier], "duplicate %s", m.Identifier)
			seen[m.Identifier] = true
		}
		require.True(t, seen[root.Identifier])
		require.Empty(t, ConsistencyErrors(mods))

		for _, m := range mods {
			for _, dep := range m.Depends {
				satisfiedBy := 0
				for _, other := range mods {
					if dep.Admits(other) {
						satisfiedBy++
					}
				}
				require.Equal(t, 1, satisfiedBy, "%s %s", m.Identifier, dep.Name)
			}
		}

		again, err := NewWalker(reg, logr.Discard()).Walk(context.Background(), Request{Install: mods, Options: DependsOnlyOptions()})
		require.NoError(t, err)
		require.Equal(t, ids(mods), ids(again.List.Modules()))
	})
}

func TestAssemble_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := randomCatalog(t)
		all := reg.AvailableModules(semver.Criteria{})
		root := all[rapid.IntRange(0, len(all)-1).Draw(t, "root")]
		a := NewAssembler(reg, semver.Criteria{}, logr.Discard())
		a.Providers = ProviderChooserFunc(func(_ context.Context, req ProviderRequest) (*module.Module, error) {
			return req.Candidates[0], nil
		})

		intents := []Intent{{Identifier: root.Identifier, Type: ChangeInstall}}
		first, err := a.Assemble(context.Background(), intents)
		if err != nil {
			return
		}
		second, err := a.Assemble(context.Background(), intents)
		require.NoError(t, err)
		require.Equal(t, changeIDs(first.Changes()), changeIDs(second.Changes()))

		installed := make([]*module.Module, 0, first.Len())
		for _, c := range first.Of(ChangeInstall) {
			installed = append(installed, c.Module)
		}
		require.Empty(t, ConsistencyErrors(installed))
	})
}
