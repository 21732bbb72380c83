package dag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type node struct {
	name string
	deps []string
}

func (n node) NodeName() string        { return n.name }
func (n node) PrevNodeNames() []string { return n.deps }

func nodes(list ...node) []NamedNode {
	out := make([]NamedNode, 0, len(list))
	for _, n := range list {
		out = append(out, n)
	}
	return out
}

func TestSort_InsertionOrderTieBreak(t *testing.T) {
	g, err := New(nodes(
		node{name: "welcome"},
		node{name: "stats", deps: []string{"economy"}},
		node{name: "economy"},
		node{name: "leveling", deps: []string{"economy"}},
	))
	require.NoError(t, err)

	order, err := g.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome", "economy", "stats", "leveling"}, order)
}

func TestSort_IgnoresReservedOutsideAndSelf(t *testing.T) {
	g, err := New(nodes(
		node{name: "b", deps: []string{"a", "core", "b"}},
		node{name: "a", deps: []string{"core", "missing"}},
	), WithIgnored("core"))
	require.NoError(t, err)

	order, err := g.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []string{"a"}, g.Prev("b"))
	assert.Equal(t, []string{"b"}, g.Next("a"))
}

func TestSort_Cycle(t *testing.T) {
	g, err := New(nodes(
		node{name: "x", deps: []string{"y"}},
		node{name: "y", deps: []string{"x"}},
	))
	require.NoError(t, err)

	order, err := g.Sort()
	assert.Nil(t, order)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.ElementsMatch(t, []string{"x", "y"}, cycle.Path)
	assert.Equal(t, "circular dependency detected: x -> y -> x", err.Error())
}

func TestSort_CycleBehindAcyclicPrefix(t *testing.T) {
	g, err := New(nodes(
		node{name: "a"},
		node{name: "b", deps: []string{"a", "d"}},
		node{name: "c", deps: []string{"b"}},
		node{name: "d", deps: []string{"c"}},
	))
	require.NoError(t, err)

	_, err = g.Sort()
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"b", "d", "c"}, cycle.Path)
}

func TestNew_DuplicateNode(t *testing.T) {
	_, err := New(nodes(node{name: "a"}, node{name: "a"}))
	assert.EqualError(t, err, "duplicate node: a")
}

func TestSort_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		list := make([]node, n)
		for i := range list {
			idx := rapid.SliceOfN(rapid.IntRange(0, n-1), 0, 3).Draw(t, fmt.Sprintf("deps%d", i))
			deps := make([]string, 0, len(idx))
			for _, j := range idx {
				deps = append(deps, fmt.Sprintf("p%d", j))
			}
			list[i] = node{name: fmt.Sprintf("p%d", i), deps: deps}
		}
		list = rapid.Permutation(list).Draw(t, "insertion")

		g, err := New(nodes(list...))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		order, err := g.Sort()
		if err != nil {
			cycle := err.(*CycleError).Path
			if len(cycle) < 2 {
				t.Fatalf("cycle too short: %v", cycle)
			}
			for i, name := range cycle {
				following := cycle[(i+1)%len(cycle)]
				if !contains(g.Prev(name), following) {
					t.Fatalf("%s does not depend on %s in cycle %v", name, following, cycle)
				}
			}
			return
		}

		if len(order) != n {
			t.Fatalf("order has %d names, want %d", len(order), n)
		}
		pos := make(map[string]int, n)
		for i, name := range order {
			pos[name] = i
		}
		for _, nd := range list {
			for _, dep := range g.Prev(nd.name) {
				if pos[dep] >= pos[nd.name] {
					t.Fatalf("%s placed before its dependency %s: %v", nd.name, dep, order)
				}
			}
		}
	})
}

func TestSort_AcyclicNeverFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(t, "n")
		list := make([]node, n)
		for i := range list {
			var deps []string
			if i > 0 {
				for _, j := range rapid.SliceOfN(rapid.IntRange(0, i-1), 0, 3).Draw(t, fmt.Sprintf("deps%d", i)) {
					deps = append(deps, fmt.Sprintf("p%d", j))
				}
			}
			list[i] = node{name: fmt.Sprintf("p%d", i), deps: deps}
		}
		list = rapid.Permutation(list).Draw(t, "insertion")

		g, err := New(nodes(list...))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if _, err := g.Sort(); err != nil {
			t.Fatalf("acyclic input reported %v", err)
		}
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
