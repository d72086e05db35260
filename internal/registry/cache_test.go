package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
	"github.com/anvil-platform/forge/internal/semver"
)

func manifest(name, id, version, rv string) gamev1alpha1.ModuleManifest {
	return gamev1alpha1.ModuleManifest{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "mods", ResourceVersion: rv},
		Spec: gamev1alpha1.ModuleManifestSpec{
			Module:   gamev1alpha1.ModuleRef{ID: id, Version: version},
			Provides: []string{"Engine"},
			Depends:  []gamev1alpha1.RelationshipDescriptor{{Name: "Lib", Version: ">=1.0"}},
		},
	}
}

func TestFromManifests(t *testing.T) {
	manifests := []gamev1alpha1.ModuleManifest{
		manifest("engine-1", "EngineB", "1.0.0", "1"),
		manifest("lib-1", "Lib", "1.0", "1"),
	}
	reg, err := FromManifests(manifests, []gamev1alpha1.ModuleRef{{ID: "Lib", Version: "1.0.0"}})
	require.NoError(t, err)
	require.True(t, reg.IsInstalled("Lib"))

	e, ok := reg.LatestAvailable("EngineB", semver.Criteria{})
	require.True(t, ok)
	require.Equal(t, "Lib", e.Depends[0].Name)
	require.True(t, e.ProvidesName("Engine"))

	_, err = FromManifests(manifests, []gamev1alpha1.ModuleRef{{ID: "Ghost", Version: "1.0.0"}})
	require.True(t, errors.Is(err, ErrUnknownInstalled))
}

func TestSnapshotCache(t *testing.T) {
	cache := NewSnapshotCache(DefaultSnapshotExpiration, DefaultCleanupInterval)
	manifests := []gamev1alpha1.ModuleManifest{manifest("engine-1", "EngineB", "1.0.0", "1")}

	first, hit, err := cache.FromManifests("mods", manifests, nil)
	require.NoError(t, err)
	require.False(t, hit)

	second, hit, err := cache.FromManifests("mods", manifests, nil)
	require.NoError(t, err)
	require.True(t, hit)
	require.Same(t, first, second)

	manifests[0].ResourceVersion = "2"
	_, hit, err = cache.FromManifests("mods", manifests, nil)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 2, cache.Len())

	require.NotEqual(t,
		Fingerprint("a", manifests, nil),
		Fingerprint("b", manifests, nil),
	)
	cache.Flush()
	require.Zero(t, cache.Len())
}
