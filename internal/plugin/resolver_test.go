// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-strange/strange/pkg/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func desc(name string, deps ...string) Descriptor {
	return Descriptor{Name: name, Version: "1.0.0", Repository: "https://example.com/" + name + ".git", Dependencies: deps}
}

func TestResolve_RegistryOrderTieBreak(t *testing.T) {
	order, err := Resolve([]Descriptor{
		desc("stats"),
		desc("casino", "economy"),
		desc("economy", CoreName),
		desc("music"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stats", "economy", "music", "casino"}, order)
}

func TestResolve_IgnoresSelf(t *testing.T) {
	order, err := Resolve([]Descriptor{
		desc("a", "a", CoreName),
		desc("b", "a"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestResolve_UnknownDependency(t *testing.T) {
	order, err := Resolve([]Descriptor{
		desc("a", "ghost"),
		desc("b", "a", "phantom", CoreName),
	})
	assert.Nil(t, order)

	var missing *MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "a", missing.Plugin)
	assert.Equal(t, []string{"ghost"}, missing.Missing)
	assert.EqualError(t, err, "missing dependencies for a: ghost, install and enable them first")
}

func TestResolve_TwoNodeCycle(t *testing.T) {
	_, err := Resolve([]Descriptor{desc("x", "y"), desc("y", "x")})

	var cycle *dag.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.ElementsMatch(t, []string{"x", "y"}, cycle.Path)
	assert.EqualError(t, err, "circular dependency detected: x -> y -> x")
}

func TestResolve_AcyclicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		descs := make([]Descriptor, n)
		for i := 0; i < n; i++ {
			var deps []string
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) {
					deps = append(deps, fmt.Sprintf("p%d", j))
				}
			}
			if rapid.Bool().Draw(t, fmt.Sprintf("core_%d", i)) {
				deps = append(deps, CoreName)
			}
			descs[i] = desc(fmt.Sprintf("p%d", i), deps...)
		}
		descs = rapid.Permutation(descs).Draw(t, "registry")

		order, err := Resolve(descs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != n {
			t.Fatalf("got %d names, want %d", len(order), n)
		}
		pos := make(map[string]int, n)
		for i, name := range order {
			if _, dup := pos[name]; dup {
				t.Fatalf("duplicate %s in %v", name, order)
			}
			pos[name] = i
		}
		for _, d := range descs {
			for _, dep := range d.Dependencies {
				if dep == CoreName {
					continue
				}
				if pos[dep] >= pos[d.Name] {
					t.Fatalf("%s placed before its dependency %s: %v", d.Name, dep, order)
				}
			}
		}
	})
}

func TestResolve_CycleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 10).Draw(t, "n")
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("p%d", i)
		}
		names = rapid.Permutation(names).Draw(t, "names")
		k := rapid.IntRange(2, n).Draw(t, "ring")

		deps := make(map[string][]string, n)
		for i := 0; i < k; i++ {
			deps[names[i]] = append(deps[names[i]], names[(i+1)%k])
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j && rapid.IntRange(0, 9).Draw(t, fmt.Sprintf("extra_%d_%d", i, j)) == 0 {
					deps[names[i]] = append(deps[names[i]], names[j])
				}
			}
		}
		descs := make([]Descriptor, n)
		for i, name := range names {
			descs[i] = desc(name, deps[name]...)
		}

		_, err := Resolve(descs)
		var cycle *dag.CycleError
		if !errors.As(err, &cycle) {
			t.Fatalf("expected cycle error, got %v", err)
		}
		path := cycle.Path
		if len(path) < 2 {
			t.Fatalf("cycle too short: %v", path)
		}
		seen := map[string]bool{}
		for i, name := range path {
			if seen[name] {
				t.Fatalf("repeated %s in %v", name, path)
			}
			seen[name] = true
			next := path[(i+1)%len(path)]
			found := false
			for _, d := range deps[name] {
				if d == next {
					found = true
				}
			}
			if !found {
				t.Fatalf("%s does not depend on %s in %v", name, next, path)
			}
		}
	})
}
