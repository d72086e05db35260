package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

func mod(id string, provides ...string) *module.Module {
	return &module.Module{Identifier: id, Version: semver.MustParseVersion("1.0.0"), Provides: provides}
}

func TestClosure_AddIndexesProvides(t *testing.T) {
	c := NewClosure()
	require.NoError(t, c.Add(mod("C", "Engine"), RequiredBy("A")))
	require.NoError(t, c.Add(mod("B", "Engine"), UserRequested()))

	providers := c.Providing("Engine")
	require.Len(t, providers, 2)
	require.Equal(t, "B", providers[0].Identifier)
	require.Equal(t, "C", providers[1].Identifier)

	require.Len(t, c.Providing("C"), 1)
	require.Empty(t, c.Providing("Missing"))

	n, ok := c.Get("C")
	require.True(t, ok)
	require.Equal(t, "required by A", n.Reason.String())

	require.Equal(t, []string{"C", "B"}, []string{c.Modules()[0].Identifier, c.Modules()[1].Identifier})
	require.Equal(t, "B", c.Nodes()[0].Module.Identifier)
}

func TestClosure_AddTwiceFails(t *testing.T) {
	c := NewClosure()
	require.NoError(t, c.Add(mod("A"), UserRequested()))
	require.Error(t, c.Add(mod("A"), RequiredBy("B")))
	require.Equal(t, 1, c.Len())
}

func TestReasonStrings(t *testing.T) {
	require.Equal(t, "requested", UserRequested().String())
	require.Equal(t, "installed", Installed().String())
	require.Equal(t, "recommended by A", RecommendedBy("A").String())
	require.Equal(t, "suggested by A", SuggestedBy("A").String())
	require.Equal(t, "provides Engine", ChosenFor("Engine").String())
	require.Equal(t, "depends on B", DependsOnRemoved("B").String())
	require.True(t, ChosenFor("Engine").UserSelected())
	require.False(t, RequiredBy("A").UserSelected())
}
