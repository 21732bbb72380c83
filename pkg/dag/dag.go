// Package dag orders named nodes so that every node comes after the nodes it
// depends on. Ties are broken by insertion order, which makes the result
// stable for a given input.
package dag

import (
	"strings"

	"github.com/pkg/errors"
)

// NamedNode is a node identified by name that lists the names it depends on.
type NamedNode interface {
	// NodeName uniquely identifies a node
	NodeName() string
	// PrevNodeNames are the names that must come before this node
	PrevNodeNames() []string
}

// DAG is a dependency graph over a fixed candidate set.
type DAG struct {
	order []string
	prev  map[string][]string
	next  map[string][]string
}

type options struct {
	ignored map[string]struct{}
}

type Option func(*options)

// WithIgnored drops edges to the given names. Such names are treated as
// always available.
func WithIgnored(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.ignored[n] = struct{}{}
		}
	}
}

// New builds a graph. Edges to names outside the node set, edges to ignored
// names and self edges are dropped.
func New(nodes []NamedNode, ops ...Option) (*DAG, error) {
	o := &options{ignored: map[string]struct{}{}}
	for _, op := range ops {
		op(o)
	}

	g := &DAG{
		order: make([]string, 0, len(nodes)),
		prev:  make(map[string][]string, len(nodes)),
		next:  make(map[string][]string, len(nodes)),
	}
	for _, n := range nodes {
		name := n.NodeName()
		if _, ok := g.prev[name]; ok {
			return nil, errors.Errorf("duplicate node: %s", name)
		}
		g.order = append(g.order, name)
		g.prev[name] = nil
	}

	for _, n := range nodes {
		name := n.NodeName()
		seen := map[string]struct{}{}
		for _, dep := range n.PrevNodeNames() {
			if dep == name {
				continue
			}
			if _, ok := o.ignored[dep]; ok {
				continue
			}
			if _, ok := g.prev[dep]; !ok {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			g.prev[name] = append(g.prev[name], dep)
			g.next[dep] = append(g.next[dep], name)
		}
	}
	return g, nil
}

// Names returns node names in insertion order.
func (g *DAG) Names() []string {
	return append([]string(nil), g.order...)
}

// Prev returns the retained dependencies of name.
func (g *DAG) Prev(name string) []string {
	return append([]string(nil), g.prev[name]...)
}

// Next returns the direct dependents of name in insertion order.
func (g *DAG) Next(name string) []string {
	return append([]string(nil), g.next[name]...)
}

// Sort returns a topological order using Kahn's algorithm. Nodes that become
// ready at the same time keep their insertion order. A cycle yields a
// *CycleError and no partial order.
func (g *DAG) Sort() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	queue := make([]string, 0, len(g.order))
	for _, name := range g.order {
		inDegree[name] = len(g.prev[name])
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)

		for _, dependent := range g.next[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, &CycleError{Path: g.FindCycle()}
	}
	return result, nil
}

// FindCycle returns one cycle as a list of names where each name depends on
// the following one and the last depends on the first. Nil when acyclic.
func (g *DAG) FindCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.order))
	var stack []string

	var dfs func(name string) []string
	dfs = func(name string) []string {
		state[name] = onStack
		stack = append(stack, name)
		for _, dep := range g.prev[name] {
			switch state[dep] {
			case unvisited:
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			case onStack:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == dep {
						return append([]string(nil), stack[i:]...)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range g.order {
		if state[name] == unvisited {
			if cycle := dfs(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return "circular dependency detected: " + strings.Join(e.Path, " -> ") + " -> " + e.Path[0]
}
