package registry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

const catalogYAML = `
game_versions: ["1.12.5"]
modules:
  - identifier: ModA
    version: 1.0.0
    depends:
      - name: Engine
    recommends:
      - name: Skins
        version: ">=2.0"
  - identifier: EngineB
    version: 1.1.0
    provides: [Engine]
  - identifier: EngineC
    version: 0.4.0
    provides: [Engine]
    game_version_max: "1.11"
  - identifier: Skins
    version: 2.1.0
    kind: metapackage
installed:
  - identifier: EngineB
    version: 1.1.0
`

func TestDecodeAndBuild(t *testing.T) {
	doc, err := Decode(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Equal(t, []string{"1.12.5"}, doc.GameVersions)
	require.Len(t, doc.Modules, 4)

	reg, err := doc.Registry()
	require.NoError(t, err)

	inst, ok := reg.Installed("EngineB")
	require.True(t, ok)
	latest, _ := reg.LatestAvailable("EngineB", semver.Criteria{})
	require.Same(t, latest, inst)

	crit, err := semver.ParseCriteria(doc.GameVersions...)
	require.NoError(t, err)
	engines := reg.LatestAvailableWithProvides("Engine", crit)
	require.Len(t, engines, 1)
	require.Equal(t, "EngineB", engines[0].Identifier)

	skins, _ := reg.LatestAvailable("Skins", crit)
	require.True(t, skins.Metapackage)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("modules:\n  - identifier: A\n    version: 1.0.0\n    dependz: []\n"))
	require.Error(t, err)
}

func TestDocument_BadMetadata(t *testing.T) {
	doc, err := Decode(strings.NewReader("modules:\n  - identifier: A\n    version: nope\n"))
	require.NoError(t, err)
	_, err = doc.Registry()
	require.ErrorIs(t, err, module.ErrBadMetadata)
}

func TestLoadFiles_MergesAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(catalogYAML), 0o644))

	installed := Document{Installed: []module.Manifest{{Identifier: "Skins", Version: "2.1.0", Kind: "metapackage"}}}
	var buf bytes.Buffer
	require.NoError(t, installed.Encode(&buf))
	state := filepath.Join(dir, "installed.yaml")
	require.NoError(t, os.WriteFile(state, buf.Bytes(), 0o644))

	reg, doc, err := LoadFiles(catalog, "", state)
	require.NoError(t, err)
	require.Len(t, doc.Installed, 2)
	require.True(t, reg.IsInstalled("Skins"))
	require.True(t, reg.IsInstalled("EngineB"))

	m, _ := reg.LatestAvailable("ModA", semver.Criteria{})
	back := ManifestOf(m)
	require.Equal(t, "ModA", back.Identifier)
	require.Empty(t, back.Name)
	require.Equal(t, ">=2.0", back.Recommends[0].Version)
}
