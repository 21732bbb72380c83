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

package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Hook releases one resource during shutdown.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Manager tracks shutdown state and runs registered hooks in reverse order.
type Manager struct {
	shuttingDown int32
	mu           sync.Mutex
	hooks        []Hook
	shutdownChan chan struct{}
}

// NewManager creates a new shutdown manager.
func NewManager() *Manager {
	return &Manager{
		shutdownChan: make(chan struct{}, 1),
	}
}

// Register adds a hook. Hooks registered later run first.
func (m *Manager) Register(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, Hook{Name: name, Fn: fn})
}

// IsShuttingDown reports whether Shutdown was called.
func (m *Manager) IsShuttingDown() bool {
	return atomic.LoadInt32(&m.shuttingDown) == 1
}

// Shutdown signals waiters and runs the hooks once. A second call returns nil
// without running anything.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.shuttingDown, 0, 1) {
		return nil
	}

	select {
	case m.shutdownChan <- struct{}{}:
	default:
	}

	m.mu.Lock()
	hooks := append([]Hook(nil), m.hooks...)
	m.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].Fn(ctx); err != nil {
			errs = append(errs, errors.New(hooks[i].Name+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// Wait returns a channel that receives once Shutdown starts.
func (m *Manager) Wait() <-chan struct{} {
	return m.shutdownChan
}
