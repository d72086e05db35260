package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// ConflictDetector explains why a set of modules cannot coexist.
type ConflictDetector struct {
	Registry Registry
	Criteria semver.Criteria
	Log      logr.Logger
}

// Conflicts resolves ids, preferring the installed version of each, and returns
// a description of every conflict keyed by identifier, e.g.
// {"A": "conflicts with B", "B": "conflicts with A"}. A conflict-free set yields an empty map.
func (d *ConflictDetector) Conflicts(ctx context.Context, ids []string) (map[string]string, error) {
	mods := make([]*module.Module, 0, len(ids))
	for _, id := range ids {
		if m, ok := d.Registry.Installed(id); ok {
			mods = append(mods, m)
			continue
		}
		m, ok := d.Registry.LatestAvailable(id, d.Criteria)
		if !ok {
			return nil, &ModuleNotFoundError{Identifier: id}
		}
		mods = append(mods, m)
	}
	return d.ConflictsAmong(ctx, mods)
}

// ConflictsAmong is Conflicts for modules that are already resolved.
func (d *ConflictDetector) ConflictsAmong(ctx context.Context, mods []*module.Module) (map[string]string, error) {
	seen := make(map[string]struct{}, len(mods))
	unique := make([]*module.Module, 0, len(mods))
	for _, m := range mods {
		if _, ok := seen[m.Identifier]; ok {
			continue
		}
		seen[m.Identifier] = struct{}{}
		unique = append(unique, m)
	}

	step, err := NewWalker(d.Registry, d.Log).Walk(ctx, Request{
		Install:  unique,
		Options:  ConflictOptions(),
		Criteria: d.Criteria,
	})
	if err != nil {
		return nil, err
	}
	conflicts := step.List.Conflicts()
	d.Log.V(1).Info("computed conflicts", "modules", len(unique), "conflicting", len(conflicts))
	return conflicts, nil
}

func describeConflicts(pairs []ConflictPair) map[string]string {
	partners := map[string][]string{}
	add := func(a, b string) {
		if !containsString(partners[a], b) {
			partners[a] = append(partners[a], b)
		}
	}
	for _, p := range pairs {
		add(p.A.Identifier, p.B.Identifier)
		add(p.B.Identifier, p.A.Identifier)
	}
	out := make(map[string]string, len(partners))
	for id, others := range partners {
		sort.Strings(others)
		out[id] = "conflicts with " + strings.Join(others, ", ")
	}
	return out
}
