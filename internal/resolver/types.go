package resolver

import (
	"sort"

	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/semver"
)

// Registry is the read-only catalog view the resolver queries.
//
// Implementations must behave as an immutable snapshot for the duration of a resolution.
type Registry interface {
	// AvailableModules returns the latest compatible version of every known module.
	AvailableModules(crit semver.Criteria) []*module.Module
	InstalledModules() []*module.Module
	Installed(identifier string) (*module.Module, bool)
	IsInstalled(identifier string) bool
	// LatestAvailable returns the highest compatible version of identifier.
	LatestAvailable(identifier string, crit semver.Criteria) (*module.Module, bool)
	// AvailableVersions returns every compatible version of identifier, highest first.
	AvailableVersions(identifier string, crit semver.Criteria) []*module.Module
	// LatestAvailableWithProvides returns the latest compatible version of every module
	// that is or provides name, sorted by identifier.
	LatestAvailableWithProvides(name string, crit semver.Criteria) []*module.Module
	// FindReverseDependencies returns the installed modules that would be left with an
	// unsatisfied dependency once identifiers are removed, transitively, sorted.
	FindReverseDependencies(identifiers []string) []string
	// Known reports whether identifier exists in the catalog at any version.
	Known(identifier string) bool
}

// Request is one invocation of the walker.
type Request struct {
	// Install is the fixed set of modules that must be in the result.
	Install []*module.Module
	// Chosen maps identifiers in Install to the capability they were picked for.
	Chosen map[string]string
	// Installed is the baseline the closure is built on top of.
	Installed []*module.Module
	Options   Options
	Criteria  semver.Criteria
}

// ProviderRequest asks the caller to pick one module providing Capability.
type ProviderRequest struct {
	Capability   string
	Depender     *module.Module
	Relationship module.Relationship
	Candidates   []*module.Module
}

// Step is the outcome of a single walk: either a complete list or a pending provider choice.
// Failures are returned as errors alongside a zero Step.
type Step struct {
	List   *ModList
	Choice *ProviderRequest
}

// Resolved reports whether the walk produced a complete list.
func (s Step) Resolved() bool {
	return s.List != nil
}

// ConflictPair is a pair of selected modules that conflict, recorded when inconsistencies are tolerated.
type ConflictPair struct {
	A *module.Module
	B *module.Module
}

// ModList is a resolved closure: every module that must be present, with the reason each was selected.
type ModList struct {
	nodes     []graph.Node
	conflicts []ConflictPair
}

// Modules returns the selected modules sorted by identifier.
func (l *ModList) Modules() []*module.Module {
	out := make([]*module.Module, 0, len(l.nodes))
	for _, n := range l.nodes {
		out = append(out, n.Module)
	}
	return out
}

// Nodes returns the selected modules with their reasons, sorted by identifier.
func (l *ModList) Nodes() []graph.Node {
	return append([]graph.Node(nil), l.nodes...)
}

func (l *ModList) Len() int {
	return len(l.nodes)
}

// Get returns the node for identifier.
func (l *ModList) Get(identifier string) (graph.Node, bool) {
	i := sort.Search(len(l.nodes), func(i int) bool {
		return l.nodes[i].Module.Identifier >= identifier
	})
	if i < len(l.nodes) && l.nodes[i].Module.Identifier == identifier {
		return l.nodes[i], true
	}
	return graph.Node{}, false
}

// Reason returns why identifier was selected.
func (l *ModList) Reason(identifier string) (graph.Reason, bool) {
	n, ok := l.Get(identifier)
	return n.Reason, ok
}

// ConflictPairs returns the tolerated conflicts recorded during the walk.
func (l *ModList) ConflictPairs() []ConflictPair {
	return append([]ConflictPair(nil), l.conflicts...)
}

// Conflicts describes each module involved in a tolerated conflict, e.g.
// {"A": "conflicts with B", "B": "conflicts with A"}.
func (l *ModList) Conflicts() map[string]string {
	return describeConflicts(l.conflicts)
}

// Count returns the number of selected modules, excluding metapackages.
func (l *ModList) Count() int {
	n := 0
	for _, node := range l.nodes {
		if !node.Module.Metapackage {
			n++
		}
	}
	return n
}

func newModList(c *graph.Closure, conflicts []ConflictPair) *ModList {
	return &ModList{nodes: c.Nodes(), conflicts: conflicts}
}
