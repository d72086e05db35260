// Package config provides configuration types and defaults for forgectl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/anvil-platform/forge/internal/resolver"
	"github.com/anvil-platform/forge/internal/semver"
)

// ProviderChoice pins the module used for a virtual capability.
type ProviderChoice struct {
	Capability string `mapstructure:"capability"`
	Module     string `mapstructure:"module"`
}

// Config holds forgectl settings.
type Config struct {
	// Catalog lists YAML documents describing available modules.
	Catalog []string `mapstructure:"catalog"`
	// Installed is the YAML document describing the installed set. It is rewritten by --apply.
	Installed    string   `mapstructure:"installed"`
	GameVersions []string `mapstructure:"game_versions"`

	WithRecommends  bool `mapstructure:"with_recommends"`
	WithSuggests    bool `mapstructure:"with_suggests"`
	WithAllSuggests bool `mapstructure:"with_all_suggests"`

	// Interactive prompts for provider and recommendation choices. When false,
	// Providers and the With* flags answer them.
	Interactive bool `mapstructure:"interactive"`
	// Accessible switches prompts to plain line-based input.
	Accessible bool   `mapstructure:"accessible"`
	Theme      string `mapstructure:"theme"`

	Providers          []ProviderChoice `mapstructure:"providers"`
	MaxProviderChoices int              `mapstructure:"max_provider_choices"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		WithRecommends:     true,
		Interactive:        true,
		Theme:              "charm",
		MaxProviderChoices: resolver.DefaultMaxProviderChoices,
	}
}

// SetDefaults registers Defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("installed", d.Installed)
	v.SetDefault("game_versions", d.GameVersions)
	v.SetDefault("with_recommends", d.WithRecommends)
	v.SetDefault("with_suggests", d.WithSuggests)
	v.SetDefault("with_all_suggests", d.WithAllSuggests)
	v.SetDefault("interactive", d.Interactive)
	v.SetDefault("accessible", d.Accessible)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("max_provider_choices", d.MaxProviderChoices)
}

// Load reads configuration into v and decodes it.
//
// Lookup order when cfgFile is empty:
//  1. .forge/config.yaml (current directory)
//  2. ~/.config/forge/config.yaml
//
// A missing config file is not an error. Environment variables prefixed with
// FORGE_ override file values.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(filepath.Join(".forge", "config.yaml")); err == nil {
		v.SetConfigFile(filepath.Join(".forge", "config.yaml"))
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "forge"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports malformed settings. A missing catalog is left to the commands that need one.
func (c Config) Validate() error {
	if c.MaxProviderChoices < 1 {
		return fmt.Errorf("max_provider_choices must be at least 1, got %d", c.MaxProviderChoices)
	}
	if _, err := c.Criteria(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Capability == "" || p.Module == "" {
			return fmt.Errorf("providers %d: capability and module are required", i)
		}
		if seen[p.Capability] {
			return fmt.Errorf("providers %d: duplicate capability %s", i, p.Capability)
		}
		seen[p.Capability] = true
	}
	return nil
}

// Criteria parses GameVersions. No versions means every module is compatible.
func (c Config) Criteria() (semver.Criteria, error) {
	crit, err := semver.ParseCriteria(c.GameVersions...)
	if err != nil {
		return semver.Criteria{}, fmt.Errorf("game_versions: %w", err)
	}
	return crit, nil
}

// Options returns the walker options implied by the config.
func (c Config) Options() resolver.Options {
	return resolver.Options{
		WithRecommends:  c.WithRecommends,
		WithSuggests:    c.WithSuggests,
		WithAllSuggests: c.WithAllSuggests,
	}
}

// ProviderPolicy returns the configured provider choices, overlaid with extra
// "Capability=Module" pairs.
func (c Config) ProviderPolicy(extra ...string) (resolver.ProviderPolicy, error) {
	policy := make(resolver.ProviderPolicy, len(c.Providers)+len(extra))
	for _, p := range c.Providers {
		policy[p.Capability] = p.Module
	}
	for _, pair := range extra {
		capability, id, ok := strings.Cut(pair, "=")
		if !ok || capability == "" || id == "" {
			return nil, fmt.Errorf("invalid provider %q, expected Capability=Module", pair)
		}
		policy[capability] = id
	}
	return policy, nil
}

// RecommendationPolicy answers recommendation prompts when not interactive:
// pre-selected recommendations and, if enabled, every suggestion.
func (c Config) RecommendationPolicy() resolver.RecommendationPolicy {
	p := resolver.RecommendationPolicy{Recommends: resolver.AcceptNone, Suggests: resolver.AcceptNone}
	if c.WithRecommends {
		p.Recommends = resolver.AcceptDefaults
	}
	if c.WithSuggests || c.WithAllSuggests {
		p.Suggests = resolver.AcceptAll
	}
	return p
}
