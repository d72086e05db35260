package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// DefaultMaxTrialDepth bounds how many nested provider alternatives an
// installability trial explores.
const DefaultMaxTrialDepth = 8

// Recommendation is an optional module offered to the caller.
type Recommendation struct {
	Module *module.Module
	// By lists the selected modules that recommend or suggest Module, sorted.
	By []string
	// Default is true when the module should be pre-selected.
	Default bool
}

// Expander collects the installable recommendations or suggestions of a set of modules.
type Expander struct {
	Registry Registry
	Criteria semver.Criteria
	// Baseline is the installed set trials resolve on top of. Nil means every installed module.
	Baseline []*module.Module
	// MaxTrialDepth defaults to DefaultMaxTrialDepth when zero.
	MaxTrialDepth int
	Log           logr.Logger
}

func (e *Expander) baseline() []*module.Module {
	if e.Baseline != nil {
		return e.Baseline
	}
	return e.Registry.InstalledModules()
}

func (e *Expander) maxDepth() int {
	if e.MaxTrialDepth > 0 {
		return e.MaxTrialDepth
	}
	return DefaultMaxTrialDepth
}

// Expand returns the installable modules that installSet relates to through kind,
// excluding anything installed or already in installSet, sorted by identifier.
func (e *Expander) Expand(ctx context.Context, installSet []*module.Module, kind module.RelationshipKind) ([]Recommendation, error) {
	if kind != module.Recommends && kind != module.Suggests {
		return nil, fmt.Errorf("resolver: cannot expand %s relationships", kind)
	}

	selected := make(map[string]struct{}, len(installSet))
	for _, m := range installSet {
		selected[m.Identifier] = struct{}{}
	}
	satisfied := func(rel module.Relationship) bool {
		return anyAdmits(rel, installSet) || anyAdmits(rel, e.baseline())
	}

	sortedSet := append([]*module.Module(nil), installSet...)
	sort.Slice(sortedSet, func(i, j int) bool {
		return sortedSet[i].Identifier < sortedSet[j].Identifier
	})

	byID := map[string]*Recommendation{}
	for _, m := range sortedSet {
		for _, rel := range m.Relationships(kind) {
			if satisfied(rel) {
				continue
			}
			providers := e.Registry.LatestAvailableWithProvides(rel.Name, e.Criteria)
			for _, p := range providers {
				if p.Identifier == rel.Name && !rel.AdmitsVersion(p.Version) {
					continue
				}
				if _, ok := selected[p.Identifier]; ok || e.Registry.IsInstalled(p.Identifier) {
					continue
				}
				rec, ok := byID[p.Identifier]
				if !ok {
					rec = &Recommendation{Module: p}
					byID[p.Identifier] = rec
				}
				if !containsString(rec.By, m.Identifier) {
					rec.By = append(rec.By, m.Identifier)
				}
				if kind == module.Recommends && (len(providers) <= 1 || p.Identifier == rel.Name) {
					rec.Default = true
				}
			}
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Recommendation, 0, len(ids))
	for _, id := range ids {
		rec := byID[id]
		trial := append(append([]*module.Module(nil), installSet...), rec.Module)
		ok, err := e.CanInstall(ctx, trial)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.Log.V(1).Info("dropping uninstallable "+kind.String(), "module", id)
			continue
		}
		sort.Strings(rec.By)
		out = append(out, *rec)
	}
	return out, nil
}

// CanInstall reports whether set resolves on top of the baseline, trying each
// alternative provider when a dependency is ambiguous. Failures mean false; only
// cancellation is returned as an error.
func (e *Expander) CanInstall(ctx context.Context, set []*module.Module) (bool, error) {
	return e.canInstall(ctx, set, 0)
}

func (e *Expander) canInstall(ctx context.Context, set []*module.Module, depth int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, cancelled(err)
	}
	if depth > e.maxDepth() {
		e.Log.V(1).Info("installability trial too deep", "depth", depth)
		return false, nil
	}

	w := NewWalker(e.Registry, e.Log)
	step, err := w.Walk(ctx, Request{
		Install:   set,
		Installed: e.baseline(),
		Options:   DependsOnlyOptions(),
		Criteria:  e.Criteria,
	})

	var tooMany *TooManyProvidersError
	switch {
	case err == nil:
		return step.List.Count() >= countPayload(set), nil
	case IsCancelled(err):
		return false, err
	case errors.As(err, &tooMany):
		for _, c := range tooMany.Candidates {
			trial := append(append([]*module.Module(nil), set...), c)
			ok, err := e.canInstall(ctx, trial, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		e.Log.V(1).Info("installability trial failed", "error", err.Error())
		return false, nil
	}
}

// Audit lists the recommendations and suggestions of every installed module
// that are not yet installed.
type Audit struct {
	Recommendations []Recommendation
	Suggestions     []Recommendation
}

func (e *Expander) Audit(ctx context.Context) (Audit, error) {
	installed := e.Registry.InstalledModules()
	recs, err := e.Expand(ctx, installed, module.Recommends)
	if err != nil {
		return Audit{}, err
	}
	sugs, err := e.Expand(ctx, installed, module.Suggests)
	if err != nil {
		return Audit{}, err
	}
	return Audit{Recommendations: recs, Suggestions: withoutModules(sugs, recs)}, nil
}

// AcceptMode selects which offered modules a RecommendationPolicy accepts.
type AcceptMode string

const (
	AcceptNone     AcceptMode = "none"
	AcceptDefaults AcceptMode = "defaults"
	AcceptAll      AcceptMode = "all"
)

// RecommendationPolicy answers recommendation prompts without a human.
type RecommendationPolicy struct {
	Recommends AcceptMode
	Suggests   AcceptMode
}

func (p RecommendationPolicy) ChooseRecommended(_ context.Context, recs []Recommendation, suggestion bool) ([]*module.Module, error) {
	mode := p.Recommends
	if suggestion {
		mode = p.Suggests
	}
	out := make([]*module.Module, 0, len(recs))
	for _, rec := range recs {
		switch mode {
		case AcceptAll:
			out = append(out, rec.Module)
		case AcceptDefaults:
			if rec.Default {
				out = append(out, rec.Module)
			}
		}
	}
	return out, nil
}

func countPayload(mods []*module.Module) int {
	n := 0
	for _, m := range mods {
		if !m.Metapackage {
			n++
		}
	}
	return n
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func withoutModules(recs, exclude []Recommendation) []Recommendation {
	skip := make(map[string]struct{}, len(exclude))
	for _, r := range exclude {
		skip[r.Module.Identifier] = struct{}{}
	}
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if _, ok := skip[r.Module.Identifier]; !ok {
			out = append(out, r)
		}
	}
	return out
}
