// Package prompt answers resolver choices interactively in the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/resolver"
)

// Chooser asks the user to pick providers and recommendations with huh forms.
// It implements resolver.ProviderChooser and resolver.RecommendationChooser.
type Chooser struct {
	Theme      string
	Accessible bool
}

func theme(name string) *huh.Theme {
	switch name {
	case "charm":
		return huh.ThemeCharm()
	case "dracula":
		return huh.ThemeDracula()
	case "catppuccin":
		return huh.ThemeCatppuccin()
	case "base16":
		return huh.ThemeBase16()
	default:
		return huh.ThemeBase()
	}
}

func (c *Chooser) ChooseProvider(ctx context.Context, req resolver.ProviderRequest) (*module.Module, error) {
	var picked string
	sel := huh.NewSelect[string]().
		Title(ProviderTitle(req)).
		Options(ProviderOptions(req)...).
		Value(&picked)
	if err := c.run(ctx, sel); err != nil {
		return nil, err
	}
	for _, m := range req.Candidates {
		if m.Identifier == picked {
			return m, nil
		}
	}
	return nil, resolver.ErrCancelled
}

func (c *Chooser) ChooseRecommended(ctx context.Context, recs []resolver.Recommendation, suggestion bool) ([]*module.Module, error) {
	var picked []string
	title := "Recommended modules"
	if suggestion {
		title = "Suggested modules"
	}
	sel := huh.NewMultiSelect[string]().
		Title(title).
		Description("Select the optional modules to install.").
		Options(RecommendationOptions(recs)...).
		Value(&picked)
	if err := c.run(ctx, sel); err != nil {
		return nil, err
	}

	out := make([]*module.Module, 0, len(picked))
	for _, rec := range recs {
		for _, id := range picked {
			if rec.Module.Identifier == id {
				out = append(out, rec.Module)
				break
			}
		}
	}
	return out, nil
}

func (c *Chooser) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(theme(c.Theme)).
		WithAccessible(c.Accessible)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return resolver.ErrCancelled
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", resolver.ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// ProviderTitle describes a provider choice.
func ProviderTitle(req resolver.ProviderRequest) string {
	if req.Depender == nil {
		return fmt.Sprintf("Several modules provide %s. Choose one:", req.Capability)
	}
	return fmt.Sprintf("%s requires %s, which several modules provide. Choose one:", req.Depender.Identifier, req.Capability)
}

// ProviderOptions lists the candidates keyed by identifier, in the order given.
func ProviderOptions(req resolver.ProviderRequest) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(req.Candidates))
	for _, m := range req.Candidates {
		opts = append(opts, huh.NewOption(describe(m), m.Identifier))
	}
	return opts
}

// RecommendationOptions lists recs, pre-selecting the defaults.
func RecommendationOptions(recs []resolver.Recommendation) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(recs))
	for _, rec := range recs {
		key := fmt.Sprintf("%s (%s)", describe(rec.Module), strings.Join(rec.By, ", "))
		opts = append(opts, huh.NewOption(key, rec.Module.Identifier).Selected(rec.Default))
	}
	return opts
}

func describe(m *module.Module) string {
	if m.Abstract == "" {
		return m.String()
	}
	return fmt.Sprintf("%s: %s", m, m.Abstract)
}
