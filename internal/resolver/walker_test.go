package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/registry"
	"github.com/anvil-platform/forge/internal/semver"
)

func walkReg(t *testing.T, reg Registry, req Request) (Step, error) {
	t.Helper()
	return NewWalker(reg, logr.Discard()).Walk(context.Background(), req)
}

func TestWalk_DependencyChainWithReasons(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("B")),
		mod("B", "1.0.0", depends("C")),
		mod("C", "1.0.0"),
		mod("Unrelated", "1.0.0"),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	require.True(t, step.Resolved())
	require.Equal(t, []string{"A", "B", "C"}, ids(step.List.Modules()))

	reason, ok := step.List.Reason("C")
	require.True(t, ok)
	require.Equal(t, graph.RequiredBy("B"), reason)
	reason, _ = step.List.Reason("A")
	require.Equal(t, graph.UserRequested(), reason)
	_, ok = step.List.Reason("Unrelated")
	require.False(t, ok)
}

func TestWalk_AmbiguousProviderSuspends(t *testing.T) {
	reg := engineCatalog()

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	require.False(t, step.Resolved())
	require.NotNil(t, step.Choice)
	require.Equal(t, "Engine", step.Choice.Capability)
	require.Equal(t, "A", step.Choice.Depender.Identifier)
	require.Equal(t, []string{"B", "C"}, ids(step.Choice.Candidates))
}

func TestWalk_AmbiguousProviderFailsWithoutChoice(t *testing.T) {
	reg := engineCatalog()

	_, err := walkReg(t, reg, Request{
		Install: []*module.Module{latest(reg, "A")},
		Options: Options{WithoutProviderChoice: true},
	})
	var tooMany *TooManyProvidersError
	require.ErrorAs(t, err, &tooMany)
	require.Equal(t, "Engine", tooMany.Requested)
	require.Equal(t, []string{"B", "C"}, ids(tooMany.Candidates))
	require.ErrorIs(t, err, ErrTooManyProviders)
}

func TestWalk_InstalledProviderSatisfiesCapability(t *testing.T) {
	reg := engineCatalog(mod("C", "1.0.0", provides("Engine")))

	step, err := walkReg(t, reg, Request{
		Install:   []*module.Module{latest(reg, "A")},
		Installed: reg.InstalledModules(),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, ids(step.List.Modules()))
}

func TestWalk_ParentNamingOneCandidatePicksIt(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Engine"), suggests("C")),
		mod("B", "1.0.0", provides("Engine")),
		mod("C", "1.0.0", provides("Engine")),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}, Options: DependsOnlyOptions()})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, ids(step.List.Modules()))
}

func TestWalk_UninstallableCandidateIsFiltered(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Engine")),
		mod("B", "1.0.0", provides("Engine"), depends("Missing")),
		mod("C", "1.0.0", provides("Engine")),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, ids(step.List.Modules()))
}

func TestWalk_DependencyCycle(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("B")),
		mod("B", "1.0.0", depends("A")),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, ids(step.List.Modules()))
	reason, _ := step.List.Reason("B")
	require.Equal(t, graph.RequiredBy("A"), reason)
}

func TestWalk_CycleThroughFailingProvider(t *testing.T) {
	// Q only looks installable while P is assumed satisfiable. P fails on Missing.
	reg := registry.MustNew([]*module.Module{
		mod("Root", "1.0.0", depends("Cap")),
		mod("P", "1.0.0", provides("Cap"), depends("Q", "Missing")),
		mod("Q", "1.0.0", provides("Cap"), depends("P")),
	}, nil)

	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "Root")}})
	var notFound *ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "Cap", notFound.Identifier)
}

func TestWalk_LayeredProvidersStayTractable(t *testing.T) {
	// Every layer has two providers of the next and the bottom layer needs a missing module.
	const layers = 40
	catalog := []*module.Module{mod("Root", "1.0.0", depends("L0"))}
	for i := 0; i < layers; i++ {
		next := fmt.Sprintf("L%d", i+1)
		if i == layers-1 {
			next = "Missing"
		}
		for _, side := range []string{"a", "b"} {
			catalog = append(catalog, mod(fmt.Sprintf("L%d%s", i, side), "1.0.0", provides(fmt.Sprintf("L%d", i)), depends(next)))
		}
	}
	reg := registry.MustNew(catalog, nil)

	start := time.Now()
	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "Root")}})
	require.Less(t, time.Since(start), 5*time.Second)
	var notFound *ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "L0", notFound.Identifier)
}

func TestWalk_MissingDependency(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Ghost")),
		mod("D", "1.0.0", depends("Lib >=2.0")),
		mod("Lib", "1.0.0"),
	}, nil)

	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	var notFound *ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "Ghost", notFound.Identifier)
	require.Equal(t, "A", notFound.Requester)

	_, err = walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "D")}})
	var unsatisfied *DependencyNotSatisfiedError
	require.ErrorAs(t, err, &unsatisfied)
	require.Equal(t, "Lib", unsatisfied.Relationship.Name)
	require.Equal(t, "dependency_not_satisfied", KindOf(err))
}

func TestWalk_VersionConstraintPicksOlderRelease(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Lib <2.0")),
		mod("Lib", "1.4.0"),
		mod("Lib", "2.0.0"),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	n, ok := step.List.Get("Lib")
	require.True(t, ok)
	require.Equal(t, "1.4.0", n.Module.Version.String())
}

func TestWalk_GameVersionCriteria(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Lib")),
		mod("Lib", "1.0.0", maxGame("1.10")),
	}, nil)

	crit := semver.NewCriteria(semver.MustParseVersion("1.12.0"))
	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}, Criteria: crit})
	require.ErrorIs(t, err, ErrDependencyNotSatisfied)
}

func TestWalk_OptionalRelationships(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("B"), recommends("R", "Ghost"), suggests("S")),
		mod("B", "1.0.0", suggests("S2")),
		mod("R", "1.0.0"),
		mod("S", "1.0.0"),
		mod("S2", "1.0.0"),
	}, nil)
	a := latest(reg, "A")

	step, err := walkReg(t, reg, Request{Install: []*module.Module{a}, Options: DefaultOptions()})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "R"}, ids(step.List.Modules()))
	reason, _ := step.List.Reason("R")
	require.Equal(t, "recommended by A", reason.String())

	step, err = walkReg(t, reg, Request{Install: []*module.Module{a}, Options: Options{WithSuggests: true}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "S"}, ids(step.List.Modules()))

	step, err = walkReg(t, reg, Request{Install: []*module.Module{a}, Options: Options{WithAllSuggests: true}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "S", "S2"}, ids(step.List.Modules()))
}

func TestWalk_RequestedConflict(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", conflicts("B")),
		mod("B", "1.0.0"),
	}, nil)
	install := []*module.Module{latest(reg, "A"), latest(reg, "B")}

	_, err := walkReg(t, reg, Request{Install: install})
	var inc *InconsistentError
	require.ErrorAs(t, err, &inc)
	require.Contains(t, inc.Inconsistencies[0], "can't install both")

	step, err := walkReg(t, reg, Request{Install: install, Options: ConflictOptions()})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"A": "conflicts with B", "B": "conflicts with A"}, step.List.Conflicts())
}

func TestWalk_DependencyConflictsWithInstalled(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Lib")),
		mod("Lib", "1.0.0", conflicts("Old")),
	}, []*module.Module{mod("Old", "1.0.0")})

	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}, Installed: reg.InstalledModules()})
	require.ErrorIs(t, err, ErrInconsistent)
}

func TestWalk_IncompatibleInstalledVersion(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Lib >=2.0")),
		mod("Lib", "2.0.0"),
	}, []*module.Module{mod("Lib", "1.0.0")})

	_, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "A")}, Installed: reg.InstalledModules()})
	var inc *InconsistentError
	require.ErrorAs(t, err, &inc)
	require.Contains(t, inc.Error(), "is already installed")

	step, err := walkReg(t, reg, Request{
		Install:   []*module.Module{latest(reg, "A")},
		Installed: reg.InstalledModules(),
		Options:   ConflictOptions(),
	})
	require.NoError(t, err)
	require.Len(t, step.List.ConflictPairs(), 1)
}

func TestWalk_UpgradeReplacesBaseline(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("Lib", "2.0.0"),
	}, []*module.Module{mod("Lib", "1.0.0"), mod("User", "1.0.0", depends("Lib"))})

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "Lib")}, Installed: reg.InstalledModules()})
	require.NoError(t, err)
	n, _ := step.List.Get("Lib")
	require.Equal(t, "2.0.0", n.Module.Version.String())
}

func TestWalk_EnforcesConsistency(t *testing.T) {
	reg := registry.MustNew(nil, []*module.Module{mod("Broken", "1.0.0", depends("Gone"))})
	a := mod("A", "1.0.0")

	_, err := walkReg(t, reg, Request{Install: []*module.Module{a}, Installed: reg.InstalledModules()})
	require.ErrorIs(t, err, ErrInconsistent)

	_, err = walkReg(t, reg, Request{
		Install:   []*module.Module{a},
		Installed: reg.InstalledModules(),
		Options:   Options{WithoutEnforceConsistency: true},
	})
	require.NoError(t, err)
}

func TestWalk_BadMetadata(t *testing.T) {
	reg := registry.MustNew(nil, nil)
	bad := &module.Module{Identifier: "A", Version: semver.MustParseVersion("1.0.0"), Depends: []module.Relationship{{Name: "B", Version: ">=banana"}}}

	_, err := walkReg(t, reg, Request{Install: []*module.Module{bad}})
	require.ErrorIs(t, err, ErrBadMetadata)
	require.Equal(t, "bad_metadata", KindOf(err))
}

func TestWalk_Cancelled(t *testing.T) {
	reg := engineCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWalker(reg, logr.Discard()).Walk(ctx, Request{Install: []*module.Module{latest(reg, "A")}})
	require.True(t, IsCancelled(err))
	require.True(t, errors.Is(err, ErrCancelled))
	require.Equal(t, "cancelled", KindOf(err))
}

func TestWalk_MetapackageCount(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("Pack", "1.0.0", metapackage(), depends("A", "B")),
		mod("A", "1.0.0"),
		mod("B", "1.0.0"),
	}, nil)

	step, err := walkReg(t, reg, Request{Install: []*module.Module{latest(reg, "Pack")}})
	require.NoError(t, err)
	require.Equal(t, 3, step.List.Len())
	require.Equal(t, 2, step.List.Count())
}
