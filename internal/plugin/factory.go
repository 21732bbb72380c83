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
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh instance on every enable.
type Factory func() Instance

type factoryKey struct {
	name string
	kind Kind
}

// Factories maps a plugin name and process kind to its entry point.
type Factories struct {
	mu sync.RWMutex
	m  map[factoryKey]Factory
}

func NewFactories() *Factories {
	return &Factories{m: make(map[factoryKey]Factory)}
}

// Register adds an entry point. It panics on an empty name, a nil factory or
// a duplicate registration.
func (f *Factories) Register(name string, kind Kind, factory Factory) {
	if name == "" {
		panic("plugin name cannot be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("plugin %s: factory cannot be nil", name))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := factoryKey{name: name, kind: kind}
	if _, exists := f.m[key]; exists {
		panic(fmt.Sprintf("plugin %s already registered for %s", name, kind))
	}
	f.m[key] = factory
}

func (f *Factories) Lookup(name string, kind Kind) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.m[factoryKey{name: name, kind: kind}]
	return factory, ok
}

// Names lists the plugins with an entry point for kind.
func (f *Factories) Names(kind Kind) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var names []string
	for k := range f.m {
		if k.kind == kind {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

var defaultFactories = NewFactories()

// Register adds an entry point to the process-wide table. Plugins call it
// from init.
func Register(name string, kind Kind, factory Factory) {
	defaultFactories.Register(name, kind, factory)
}

// DefaultFactories returns the process-wide table.
func DefaultFactories() *Factories {
	return defaultFactories
}
