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
	"github.com/go-strange/strange/pkg/dag"
)

// Resolve orders descs so every plugin follows its dependencies. Edges to
// core are ignored and ties keep registry order. A dependency outside descs
// fails with a *MissingDependencyError naming the first plugin that has one.
func Resolve(descs []Descriptor) ([]string, error) {
	known := make(map[string]bool, len(descs))
	for _, d := range descs {
		known[d.Name] = true
	}
	nodes := make([]dag.NamedNode, len(descs))
	for i, d := range descs {
		if missing := missingDeps(d, func(dep string) bool { return dep == CoreName || known[dep] }); len(missing) > 0 {
			return nil, &MissingDependencyError{Plugin: d.Name, Missing: missing}
		}
		nodes[i] = d
	}
	g, err := dag.New(nodes, dag.WithIgnored(CoreName))
	if err != nil {
		return nil, err
	}
	return g.Sort()
}

// missingDeps returns the dependencies of desc for which have is false.
func missingDeps(desc Descriptor, have func(string) bool) []string {
	var missing []string
	for _, dep := range desc.Dependencies {
		if dep == desc.Name {
			continue
		}
		if !have(dep) {
			missing = append(missing, dep)
		}
	}
	return missing
}
