package resolver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// Walker computes the transitive closure of a fixed install set in a single pass.
//
// A walk either completes, fails, or stops at the first capability with several
// providers and returns it as a ProviderRequest. Walker never blocks on a caller.
type Walker struct {
	Registry Registry
	Log      logr.Logger
}

func NewWalker(reg Registry, log logr.Logger) *Walker {
	return &Walker{Registry: reg, Log: log}
}

type walk struct {
	w         *Walker
	req       Request
	closure   *graph.Closure
	baseline  *graph.Closure
	frontier  []*module.Module
	conflicts []ConflictPair
}

func (w *Walker) Walk(ctx context.Context, req Request) (Step, error) {
	st := &walk{
		w:        w,
		req:      req,
		closure:  graph.NewClosure(),
		baseline: graph.NewClosure(),
	}
	if err := st.seed(); err != nil {
		return Step{}, err
	}

	for len(st.frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return Step{}, cancelled(err)
		}
		m := st.frontier[0]
		st.frontier = st.frontier[1:]

		for _, kind := range st.kindsFor(m) {
			for _, rel := range m.Relationships(kind) {
				choice, err := st.resolve(m, kind, rel)
				if err != nil {
					return Step{}, err
				}
				if choice != nil {
					return Step{Choice: choice}, nil
				}
			}
		}
	}

	if !req.Options.WithoutEnforceConsistency {
		all := append(st.closure.Modules(), st.baseline.Modules()...)
		if err := EnforceConsistency(all); err != nil {
			return Step{}, err
		}
	}

	list := newModList(st.closure, st.conflicts)
	w.Log.V(1).Info("walk complete", "modules", list.Len(), "conflicts", len(st.conflicts))
	return Step{List: list}, nil
}

// seed adds the fixed install set, checking it against itself and the baseline.
func (st *walk) seed() error {
	requested := make(map[string]struct{}, len(st.req.Install))
	for _, m := range st.req.Install {
		if err := m.Validate(); err != nil {
			return err
		}
		requested[m.Identifier] = struct{}{}
	}
	for _, m := range st.req.Installed {
		if _, ok := requested[m.Identifier]; ok {
			continue
		}
		if st.baseline.Has(m.Identifier) {
			continue
		}
		if err := st.baseline.Add(m, graph.Installed()); err != nil {
			return err
		}
	}

	var problems []string
	for _, m := range st.req.Install {
		if st.closure.Has(m.Identifier) {
			continue
		}
		for _, other := range append(st.closure.Modules(), st.baseline.Modules()...) {
			if !m.ConflictsWith(other) && !other.ConflictsWith(m) {
				continue
			}
			if st.req.Options.ProceedWithInconsistencies {
				st.recordConflict(m, other)
				continue
			}
			problems = append(problems, fmt.Sprintf("%s conflicts with %s, can't install both.", m, other))
		}
		reason := graph.UserRequested()
		if capability, ok := st.req.Chosen[m.Identifier]; ok {
			reason = graph.ChosenFor(capability)
		}
		if err := st.closure.Add(m, reason); err != nil {
			return err
		}
		st.frontier = append(st.frontier, m)
	}
	if len(problems) > 0 {
		return inconsistent(problems...)
	}
	return nil
}

func (st *walk) kindsFor(m *module.Module) []module.RelationshipKind {
	kinds := []module.RelationshipKind{module.Depends}
	opts := st.req.Options
	if opts.WithRecommends {
		kinds = append(kinds, module.Recommends)
	}
	if opts.WithAllSuggests {
		kinds = append(kinds, module.Suggests)
	} else if opts.WithSuggests {
		if n, ok := st.closure.Get(m.Identifier); ok && n.Reason.UserSelected() {
			kinds = append(kinds, module.Suggests)
		}
	}
	return kinds
}

// resolve handles one relationship of parent. It returns a non-nil ProviderRequest
// when the walk must stop for a caller choice.
func (st *walk) resolve(parent *module.Module, kind module.RelationshipKind, rel module.Relationship) (*ProviderRequest, error) {
	soft := kind != module.Depends
	log := st.w.Log.V(1).WithValues("module", parent.Identifier, "kind", kind.String(), "name", rel.Name)

	if providers := st.closure.Providing(rel.Name); len(providers) > 0 {
		return nil, st.checkBound(parent, rel, providers, soft, "is in the resolver")
	}
	if providers := st.baseline.Providing(rel.Name); len(providers) > 0 {
		return nil, st.checkBound(parent, rel, providers, soft, "is already installed")
	}

	candidates := st.candidates(rel)
	switch {
	case len(candidates) == 0:
		if soft {
			log.Info("skipping optional relationship with no installable provider")
			return nil, nil
		}
		if st.w.Registry.Known(rel.Name) {
			return nil, &DependencyNotSatisfiedError{Parent: parent, Relationship: rel}
		}
		return nil, &ModuleNotFoundError{Identifier: rel.Name, Version: rel.Version, Requester: parent.Identifier}

	case len(candidates) > 1:
		if soft || st.req.Options.IgnoreAmbiguousProviders {
			log.Info("leaving ambiguous relationship unresolved", "candidates", len(candidates))
			return nil, nil
		}
		if named := namedCandidate(parent, candidates); named != nil {
			candidates = []*module.Module{named}
			break
		}
		if st.req.Options.WithoutProviderChoice {
			return nil, &TooManyProvidersError{Requested: rel.Name, Requester: parent, Candidates: candidates}
		}
		return &ProviderRequest{Capability: rel.Name, Depender: parent, Relationship: rel, Candidates: candidates}, nil
	}

	return nil, st.add(parent, kind, candidates[0])
}

// add selects candidate on behalf of parent after checking it against everything already fixed.
func (st *walk) add(parent *module.Module, kind module.RelationshipKind, candidate *module.Module) error {
	soft := kind != module.Depends
	var problems []string
	for _, other := range append(st.closure.Modules(), st.baseline.Modules()...) {
		if !candidate.ConflictsWith(other) && !other.ConflictsWith(candidate) {
			continue
		}
		if soft {
			st.w.Log.V(1).Info("skipping optional module that conflicts", "module", candidate.Identifier, "conflictsWith", other.Identifier)
			return nil
		}
		if st.req.Options.ProceedWithInconsistencies {
			st.recordConflict(candidate, other)
			continue
		}
		problems = append(problems, fmt.Sprintf("%s conflicts with %s, can't install both.", candidate, other))
	}
	if len(problems) > 0 {
		return inconsistent(problems...)
	}

	var reason graph.Reason
	switch kind {
	case module.Recommends:
		reason = graph.RecommendedBy(parent.Identifier)
	case module.Suggests:
		reason = graph.SuggestedBy(parent.Identifier)
	default:
		reason = graph.RequiredBy(parent.Identifier)
	}
	if err := st.closure.Add(candidate, reason); err != nil {
		return err
	}
	st.frontier = append(st.frontier, candidate)
	return nil
}

// checkBound verifies that a module already satisfying rel by identifier has an acceptable version.
func (st *walk) checkBound(parent *module.Module, rel module.Relationship, providers []*module.Module, soft bool, where string) error {
	for _, p := range providers {
		if p.Identifier != rel.Name || rel.AdmitsVersion(p.Version) {
			continue
		}
		if soft {
			return nil
		}
		if st.req.Options.ProceedWithInconsistencies {
			st.recordConflict(parent, p)
			return nil
		}
		return inconsistent(fmt.Sprintf(
			"%s requires %s version %s. However an incompatible version, %s, %s",
			parent.Identifier, rel.Name, rel.Version, p.Version, where,
		))
	}
	return nil
}

// candidates lists installable modules that can satisfy rel, sorted by identifier.
func (st *walk) candidates(rel module.Relationship) []*module.Module {
	reg := st.w.Registry
	crit := st.req.Criteria
	check := newInstallability(st)

	out := make([]*module.Module, 0)
	for _, c := range reg.LatestAvailableWithProvides(rel.Name, crit) {
		if c.Identifier == rel.Name && !rel.AdmitsVersion(c.Version) {
			if c = st.newestAdmitted(rel); c == nil {
				continue
			}
		}
		// Another version of this identifier is already fixed.
		if st.closure.Has(c.Identifier) || st.baseline.Has(c.Identifier) {
			continue
		}
		if !check.mightBeInstallable(c) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// newestAdmitted returns the newest compatible release of rel.Name within rel's version constraint.
func (st *walk) newestAdmitted(rel module.Relationship) *module.Module {
	c, err := rel.Constraint()
	if err != nil {
		return nil
	}
	releases := st.w.Registry.AvailableVersions(rel.Name, st.req.Criteria)
	versions := make([]semver.Version, 0, len(releases))
	for _, m := range releases {
		versions = append(versions, m.Version)
	}
	best, ok := semver.MaxSatisfying(c, versions)
	if !ok {
		return nil
	}
	for _, m := range releases {
		if m.Version.Equal(best) {
			return m
		}
	}
	return nil
}

// installability answers mightBeInstallable for one state of the closure.
// Answers are memoized per release; a positive answer that leaned on a module
// still being visited is not kept, since that module may yet fail.
type installability struct {
	st       *walk
	known    map[string]bool
	visiting map[string]int
}

func newInstallability(st *walk) *installability {
	return &installability{st: st, known: map[string]bool{}, visiting: map[string]int{}}
}

// mightBeInstallable reports whether every dependency of m has at least one
// provider that might itself be installable. Cycles are assumed satisfiable.
func (in *installability) mightBeInstallable(m *module.Module) bool {
	ok, _ := in.visit(m)
	return ok
}

// visit returns the answer for m and the shallowest depth of an in-progress
// module it assumed satisfiable, or math.MaxInt when it assumed none.
func (in *installability) visit(m *module.Module) (bool, int) {
	key := m.String()
	if ok, seen := in.known[key]; seen {
		return ok, math.MaxInt
	}
	if depth, ok := in.visiting[key]; ok {
		return true, depth
	}
	depth := len(in.visiting)
	in.visiting[key] = depth
	defer delete(in.visiting, key)

	st := in.st
	low := math.MaxInt
	for _, dep := range m.Depends {
		if len(st.closure.Providing(dep.Name)) > 0 || len(st.baseline.Providing(dep.Name)) > 0 {
			continue
		}
		found := false
		for _, p := range st.w.Registry.LatestAvailableWithProvides(dep.Name, st.req.Criteria) {
			ok, assumed := in.visit(p)
			low = min(low, assumed)
			if ok {
				found = true
				break
			}
		}
		if !found {
			in.known[key] = false
			return false, math.MaxInt
		}
	}
	if low >= depth {
		in.known[key] = true
	}
	return true, low
}

func (st *walk) recordConflict(a, b *module.Module) {
	for _, p := range st.conflicts {
		if (p.A.Identifier == a.Identifier && p.B.Identifier == b.Identifier) ||
			(p.A.Identifier == b.Identifier && p.B.Identifier == a.Identifier) {
			return
		}
	}
	st.conflicts = append(st.conflicts, ConflictPair{A: a, B: b})
}

// namedCandidate returns the only candidate the parent names directly in any of its relationships.
func namedCandidate(parent *module.Module, candidates []*module.Module) *module.Module {
	var found *module.Module
	for _, c := range candidates {
		named := false
		for _, kind := range module.Kinds() {
			if kind != module.Conflicts && parent.Names(kind, c.Identifier) {
				named = true
				break
			}
		}
		if !named {
			continue
		}
		if found != nil {
			return nil
		}
		found = c
	}
	return found
}
