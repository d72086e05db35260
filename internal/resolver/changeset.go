package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// ChangeType is what a changeset does to one module.
type ChangeType string

const (
	ChangeInstall ChangeType = "Install"
	ChangeRemove  ChangeType = "Remove"
	ChangeUpdate  ChangeType = "Update"
)

// ModChange is one planned operation on a module.
type ModChange struct {
	Module *module.Module
	Type   ChangeType
	Reason graph.Reason
}

func (c ModChange) String() string {
	return fmt.Sprintf("%s %s (%s)", strings.ToLower(string(c.Type)), c.Module, c.Reason)
}

// Changeset holds at most one change per identifier. A Remove always wins over
// an Install or Update of the same identifier.
type Changeset struct {
	changes map[string]ModChange
}

func NewChangeset() *Changeset {
	return &Changeset{changes: map[string]ModChange{}}
}

// Add records c, honouring Remove precedence. It reports whether c was kept.
func (cs *Changeset) Add(c ModChange) bool {
	existing, ok := cs.changes[c.Module.Identifier]
	if ok && (existing.Type == ChangeRemove || c.Type != ChangeRemove) {
		return false
	}
	cs.changes[c.Module.Identifier] = c
	return true
}

func (cs *Changeset) Get(identifier string) (ModChange, bool) {
	c, ok := cs.changes[identifier]
	return c, ok
}

func (cs *Changeset) Len() int {
	return len(cs.changes)
}

var changeOrder = map[ChangeType]int{ChangeRemove: 0, ChangeUpdate: 1, ChangeInstall: 2}

// Changes returns removals, then updates, then installs, each sorted by identifier.
func (cs *Changeset) Changes() []ModChange {
	out := make([]ModChange, 0, len(cs.changes))
	for _, c := range cs.changes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if changeOrder[out[i].Type] != changeOrder[out[j].Type] {
			return changeOrder[out[i].Type] < changeOrder[out[j].Type]
		}
		return out[i].Module.Identifier < out[j].Module.Identifier
	})
	return out
}

// Of returns the changes of type t, sorted by identifier.
func (cs *Changeset) Of(t ChangeType) []ModChange {
	out := make([]ModChange, 0)
	for _, c := range cs.Changes() {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Apply returns installed with cs applied, sorted by identifier.
func (cs *Changeset) Apply(installed []*module.Module) []*module.Module {
	byID := make(map[string]*module.Module, len(installed)+len(cs.changes))
	for _, m := range installed {
		byID[m.Identifier] = m
	}
	for id, c := range cs.changes {
		if c.Type == ChangeRemove {
			delete(byID, id)
			continue
		}
		byID[id] = c.Module
	}
	out := make([]*module.Module, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// Intent is a user request to install, remove or update one module.
// Version optionally pins the version to install.
type Intent struct {
	Identifier string
	Version    string
	Type       ChangeType
}

// Assembler turns user intents into a complete changeset.
type Assembler struct {
	Registry Registry
	Criteria semver.Criteria
	// Options configures the walker. When Recommendations is set, recommends and
	// suggests are offered to it instead of being pulled in automatically.
	Options         Options
	Providers       ProviderChooser
	Recommendations RecommendationChooser

	MaxProviderChoices int
	MaxTrialDepth      int
	OnTransition       func(from, to State)
	Log                logr.Logger
}

func NewAssembler(reg Registry, crit semver.Criteria, log logr.Logger) *Assembler {
	return &Assembler{
		Registry: reg,
		Criteria: crit,
		Options:  DefaultOptions(),
		Log:      log,
	}
}

type plan struct {
	install  []*module.Module
	upgrade  []*module.Module
	remove   []*module.Module
	reasons  map[string]graph.Reason
	baseline []*module.Module
}

func (a *Assembler) Assemble(ctx context.Context, intents []Intent) (*Changeset, error) {
	p, err := a.partition(intents)
	if err != nil {
		return nil, err
	}
	a.cascade(p)
	a.computeBaseline(p)

	cs := NewChangeset()
	for _, m := range p.remove {
		cs.Add(ModChange{Module: m, Type: ChangeRemove, Reason: p.reasons[m.Identifier]})
	}

	fixed := append(append([]*module.Module(nil), p.install...), p.upgrade...)
	if len(fixed) == 0 {
		a.Log.V(1).Info("changeset assembled", "changes", cs.Len())
		return cs, nil
	}

	walkOpts := a.Options
	if a.Recommendations != nil {
		walkOpts.WithRecommends = false
		walkOpts.WithSuggests = false
		walkOpts.WithAllSuggests = false
	}

	list, err := a.resolve(ctx, p, fixed, nil, walkOpts)
	if err != nil {
		return nil, err
	}
	for _, n := range list.Nodes() {
		if _, ok := p.reasons[n.Module.Identifier]; !ok {
			p.reasons[n.Module.Identifier] = n.Reason
		}
	}

	if a.Recommendations != nil {
		extra, err := a.expand(ctx, p, list)
		if err != nil {
			return nil, err
		}
		if len(extra) > 0 {
			all := append(list.Modules(), extra...)
			if list, err = a.resolve(ctx, p, all, chosenOf(list), walkOpts); err != nil {
				return nil, err
			}
			for _, n := range list.Nodes() {
				if _, ok := p.reasons[n.Module.Identifier]; !ok {
					p.reasons[n.Module.Identifier] = n.Reason
				}
			}
		}
	}

	if err := a.checkRemovals(ctx, p, list); err != nil {
		return nil, err
	}

	for _, m := range list.Modules() {
		installed, ok := a.Registry.Installed(m.Identifier)
		switch {
		case !ok:
			cs.Add(ModChange{Module: m, Type: ChangeInstall, Reason: p.reasons[m.Identifier]})
		case !installed.Version.Equal(m.Version):
			cs.Add(ModChange{Module: m, Type: ChangeUpdate, Reason: p.reasons[m.Identifier]})
		}
	}
	a.Log.V(1).Info("changeset assembled", "changes", cs.Len())
	return cs, nil
}

func (a *Assembler) partition(intents []Intent) (*plan, error) {
	p := &plan{reasons: map[string]graph.Reason{}}
	seen := map[string]ChangeType{}
	for _, in := range intents {
		id := strings.TrimSpace(in.Identifier)
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("resolver: %s requested as both %s and %s", id, prev, in.Type)
		}
		seen[id] = in.Type

		installed, isInstalled := a.Registry.Installed(id)
		switch in.Type {
		case ChangeInstall:
			m, err := a.pick(id, in.Version)
			if err != nil {
				return nil, err
			}
			if isInstalled && installed.Version.Equal(m.Version) {
				a.Log.V(1).Info("already installed", "module", id)
				continue
			}
			if isInstalled {
				p.upgrade = append(p.upgrade, m)
			} else {
				p.install = append(p.install, m)
			}
		case ChangeRemove:
			if !isInstalled {
				return nil, &ModuleNotFoundError{Identifier: id}
			}
			p.remove = append(p.remove, installed)
		case ChangeUpdate:
			if !isInstalled {
				return nil, &ModuleNotFoundError{Identifier: id}
			}
			m, err := a.pick(id, in.Version)
			if err != nil {
				return nil, err
			}
			if semver.Compare(m.Version, installed.Version) <= 0 && in.Version == "" {
				a.Log.V(1).Info("already up to date", "module", id, "version", installed.Version.String())
				continue
			}
			p.upgrade = append(p.upgrade, m)
		default:
			return nil, fmt.Errorf("resolver: unknown change type %q for %s", in.Type, id)
		}
		p.reasons[id] = graph.UserRequested()
	}
	return p, nil
}

// pick finds the requested version of identifier, or the latest compatible one.
func (a *Assembler) pick(identifier, version string) (*module.Module, error) {
	if version == "" {
		if m, ok := a.Registry.LatestAvailable(identifier, a.Criteria); ok {
			return m, nil
		}
		if a.Registry.Known(identifier) {
			return nil, &DependencyNotSatisfiedError{Relationship: module.Relationship{Name: identifier}}
		}
		return nil, &ModuleNotFoundError{Identifier: identifier}
	}
	want, err := semver.ParseVersion(version)
	if err != nil {
		return nil, fmt.Errorf("resolver: install %s: %w", identifier, err)
	}
	for _, m := range a.Registry.AvailableVersions(identifier, a.Criteria) {
		if m.Version.Equal(want) {
			return m, nil
		}
	}
	return nil, &ModuleNotFoundError{Identifier: identifier, Version: version}
}

// cascade adds every installed module left without a dependency to the removal set.
func (a *Assembler) cascade(p *plan) {
	if len(p.remove) == 0 {
		return
	}
	ids := make([]string, 0, len(p.remove))
	removing := map[string]struct{}{}
	for _, m := range p.remove {
		ids = append(ids, m.Identifier)
		removing[m.Identifier] = struct{}{}
	}

	dependents := make([]*module.Module, 0)
	for _, id := range a.Registry.FindReverseDependencies(ids) {
		if _, ok := removing[id]; ok {
			continue
		}
		m, ok := a.Registry.Installed(id)
		if !ok {
			continue
		}
		removing[id] = struct{}{}
		dependents = append(dependents, m)
	}

	order := append(append([]*module.Module(nil), p.remove...), dependents...)
	for _, m := range dependents {
		p.reasons[m.Identifier] = graph.DependsOnRemoved(removedParent(m, order))
		a.Log.V(1).Info("cascading removal", "module", m.Identifier, "reason", p.reasons[m.Identifier].String())
	}
	p.remove = order
}

func removedParent(m *module.Module, removed []*module.Module) string {
	for _, r := range removed {
		if r.Identifier == m.Identifier {
			continue
		}
		for _, dep := range m.Depends {
			if dep.Admits(r) {
				return r.Identifier
			}
		}
	}
	return removed[0].Identifier
}

func (a *Assembler) computeBaseline(p *plan) {
	skip := map[string]struct{}{}
	for _, m := range p.remove {
		skip[m.Identifier] = struct{}{}
	}
	for _, m := range p.upgrade {
		skip[m.Identifier] = struct{}{}
	}
	p.baseline = make([]*module.Module, 0)
	for _, m := range a.Registry.InstalledModules() {
		if _, ok := skip[m.Identifier]; !ok {
			p.baseline = append(p.baseline, m)
		}
	}
}

func (a *Assembler) resolve(ctx context.Context, p *plan, fixed []*module.Module, chosen map[string]string, opts Options) (*ModList, error) {
	r := &DefaultResolver{
		Walker:             NewWalker(a.Registry, a.Log),
		Chooser:            a.Providers,
		MaxProviderChoices: a.MaxProviderChoices,
		OnTransition:       a.OnTransition,
		Log:                a.Log,
	}
	list, err := r.Resolve(ctx, Request{
		Install:   fixed,
		Chosen:    chosen,
		Installed: p.baseline,
		Options:   opts,
		Criteria:  a.Criteria,
	})
	var inc *InconsistentError
	if errors.As(err, &inc) {
		a.diagnose(ctx, inc, append(append([]*module.Module(nil), p.baseline...), fixed...))
	}
	return list, err
}

// checkRemovals fails when a resolved module still depends on a module being removed.
func (a *Assembler) checkRemovals(ctx context.Context, p *plan, list *ModList) error {
	removing := make(map[string]struct{}, len(p.remove))
	for _, m := range p.remove {
		removing[m.Identifier] = struct{}{}
	}

	mods := list.Modules()
	var problems []string
	for _, r := range mods {
		if _, ok := removing[r.Identifier]; !ok {
			continue
		}
		for _, m := range mods {
			if _, ok := removing[m.Identifier]; ok {
				continue
			}
			for _, dep := range m.Depends {
				if dep.Admits(r) {
					problems = append(problems, fmt.Sprintf("%s requires %s, which is being removed", m.Identifier, r.Identifier))
					break
				}
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	inc := inconsistent(problems...)
	a.diagnose(ctx, inc, append(append([]*module.Module(nil), p.baseline...), mods...))
	return inc
}

// diagnose attaches per-module conflict descriptions to inc.
func (a *Assembler) diagnose(ctx context.Context, inc *InconsistentError, mods []*module.Module) {
	d := &ConflictDetector{Registry: a.Registry, Criteria: a.Criteria, Log: a.Log}
	conflicts, err := d.ConflictsAmong(ctx, mods)
	if err != nil {
		a.Log.V(1).Info("conflict diagnostics unavailable", "error", err.Error())
		return
	}
	inc.Conflicts = conflicts
}

// expand offers recommendations, then suggestions, of the resolved modules.
func (a *Assembler) expand(ctx context.Context, p *plan, list *ModList) ([]*module.Module, error) {
	exp := &Expander{
		Registry:      a.Registry,
		Criteria:      a.Criteria,
		Baseline:      p.baseline,
		MaxTrialDepth: a.MaxTrialDepth,
		Log:           a.Log,
	}

	passes := []struct {
		kind       module.RelationshipKind
		suggestion bool
		enabled    bool
	}{
		{module.Recommends, false, a.Options.WithRecommends},
		{module.Suggests, true, a.Options.WithSuggests || a.Options.WithAllSuggests},
	}

	var extra []*module.Module
	for _, pass := range passes {
		if !pass.enabled {
			continue
		}
		set := append(list.Modules(), extra...)
		recs, err := exp.Expand(ctx, set, pass.kind)
		if err != nil {
			return nil, err
		}
		if pass.suggestion && !a.Options.WithAllSuggests {
			recs = fromUserSelected(recs, p.reasons)
		}
		if len(recs) == 0 {
			continue
		}
		picked, err := a.Recommendations.ChooseRecommended(ctx, recs, pass.suggestion)
		if err != nil {
			if IsCancelled(err) {
				return nil, cancelled(err)
			}
			return nil, err
		}
		for _, m := range picked {
			rec := findRecommendation(recs, m.Identifier)
			if rec == nil {
				return nil, fmt.Errorf("resolver: %s was not offered", m.Identifier)
			}
			if pass.suggestion {
				p.reasons[m.Identifier] = graph.SuggestedBy(rec.By[0])
			} else {
				p.reasons[m.Identifier] = graph.RecommendedBy(rec.By[0])
			}
			extra = append(extra, rec.Module)
		}
	}
	return extra, nil
}

func fromUserSelected(recs []Recommendation, reasons map[string]graph.Reason) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, rec := range recs {
		by := make([]string, 0, len(rec.By))
		for _, id := range rec.By {
			if r, ok := reasons[id]; ok && r.UserSelected() {
				by = append(by, id)
			}
		}
		if len(by) == 0 {
			continue
		}
		rec.By = by
		out = append(out, rec)
	}
	return out
}

func findRecommendation(recs []Recommendation, identifier string) *Recommendation {
	for i := range recs {
		if recs[i].Module.Identifier == identifier {
			return &recs[i]
		}
	}
	return nil
}

func chosenOf(list *ModList) map[string]string {
	out := map[string]string{}
	for _, n := range list.Nodes() {
		if n.Reason.Kind == graph.ReasonChosenProvider {
			out[n.Module.Identifier] = n.Reason.Parent
		}
	}
	return out
}
