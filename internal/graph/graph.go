package graph

// Package graph tracks the set of modules selected during a resolution, the
// capability names they satisfy, and why each one was selected.

import (
	"fmt"
	"sort"

	"github.com/anvil-platform/forge/internal/module"
)

// Node is one selected module.
type Node struct {
	Module *module.Module
	Reason Reason
}

// Closure is the set of selected modules keyed by identifier, with an index
// from every provided name to the modules providing it.
type Closure struct {
	nodes    map[string]*Node
	order    []string
	provides map[string][]string
}

func NewClosure() *Closure {
	return &Closure{
		nodes:    map[string]*Node{},
		provides: map[string][]string{},
	}
}

// Add selects m for reason. Adding an identifier twice is an error.
func (c *Closure) Add(m *module.Module, reason Reason) error {
	if m == nil {
		return fmt.Errorf("graph: add nil module")
	}
	if existing, ok := c.nodes[m.Identifier]; ok {
		return fmt.Errorf("graph: %s already selected (%s)", m.Identifier, existing.Reason)
	}
	c.nodes[m.Identifier] = &Node{Module: m, Reason: reason}
	c.order = append(c.order, m.Identifier)
	for _, name := range m.ProvidedNames() {
		c.provides[name] = append(c.provides[name], m.Identifier)
	}
	return nil
}

// Get returns the node selected under identifier.
func (c *Closure) Get(identifier string) (*Node, bool) {
	n, ok := c.nodes[identifier]
	return n, ok
}

func (c *Closure) Has(identifier string) bool {
	_, ok := c.nodes[identifier]
	return ok
}

// Providing returns the selected modules that identify as or provide name, by identifier.
func (c *Closure) Providing(name string) []*module.Module {
	ids := append([]string(nil), c.provides[name]...)
	sort.Strings(ids)
	out := make([]*module.Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.nodes[id].Module)
	}
	return out
}

// Len returns the number of selected modules.
func (c *Closure) Len() int {
	return len(c.nodes)
}

// Modules returns the selected modules in selection order.
func (c *Closure) Modules() []*module.Module {
	out := make([]*module.Module, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id].Module)
	}
	return out
}

// Nodes returns the selected nodes sorted by identifier.
func (c *Closure) Nodes() []Node {
	out := make([]Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Module.Identifier < out[j].Module.Identifier
	})
	return out
}
