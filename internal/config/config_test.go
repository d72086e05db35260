package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/anvil-platform/forge/internal/resolver"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	require.True(t, d.Interactive)
	require.True(t, d.WithRecommends)
	require.Equal(t, resolver.DefaultMaxProviderChoices, d.MaxProviderChoices)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
catalog:
  - mods.yaml
  - extra.yaml
installed: installed.yaml
game_versions: ["1.12.5"]
with_suggests: true
interactive: false
providers:
  - capability: Engine
    module: Nerv
`)
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, []string{"mods.yaml", "extra.yaml"}, cfg.Catalog)
	require.Equal(t, "installed.yaml", cfg.Installed)
	require.False(t, cfg.Interactive)
	require.True(t, cfg.WithSuggests)
	require.True(t, cfg.WithRecommends, "unset keys keep their defaults")
	require.Equal(t, []ProviderChoice{{Capability: "Engine", Module: "Nerv"}}, cfg.Providers)

	crit, err := cfg.Criteria()
	require.NoError(t, err)
	require.Equal(t, "1.12.5", crit.String())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FORGE_MAX_PROVIDER_CHOICES", "4")
	path := writeConfig(t, "interactive: false\n")
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.MaxProviderChoices)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero choices", func(c *Config) { c.MaxProviderChoices = 0 }, "max_provider_choices"},
		{"bad game version", func(c *Config) { c.GameVersions = []string{"one"} }, "game_versions"},
		{"empty provider", func(c *Config) { c.Providers = []ProviderChoice{{Capability: "Engine"}} }, "capability and module are required"},
		{"duplicate provider", func(c *Config) {
			c.Providers = []ProviderChoice{{"Engine", "Ion"}, {"Engine", "Nerv"}}
		}, "duplicate capability Engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProviderPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.Providers = []ProviderChoice{{"Engine", "Ion"}, {"Fuel", "LF"}}

	policy, err := cfg.ProviderPolicy("Engine=Nerv")
	require.NoError(t, err)
	require.Equal(t, resolver.ProviderPolicy{"Engine": "Nerv", "Fuel": "LF"}, policy)

	_, err = cfg.ProviderPolicy("Engine")
	require.ErrorContains(t, err, "expected Capability=Module")
}

func TestRecommendationPolicy(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, resolver.RecommendationPolicy{Recommends: resolver.AcceptDefaults, Suggests: resolver.AcceptNone}, cfg.RecommendationPolicy())

	cfg.WithRecommends = false
	cfg.WithAllSuggests = true
	require.Equal(t, resolver.RecommendationPolicy{Recommends: resolver.AcceptNone, Suggests: resolver.AcceptAll}, cfg.RecommendationPolicy())
}

func TestOptions(t *testing.T) {
	cfg := Defaults()
	cfg.WithSuggests = true
	require.Equal(t, resolver.Options{WithRecommends: true, WithSuggests: true}, cfg.Options())
}
