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

package store

import (
	"context"
	"sync"
)

// Memory is a process local Backend.
type Memory struct {
	mu       sync.RWMutex
	configs  map[string]ConfigData
	settings map[string]Settings
}

func NewMemory() *Memory {
	return &Memory{
		configs:  make(map[string]ConfigData),
		settings: make(map[string]Settings),
	}
}

func (m *Memory) LoadConfig(_ context.Context, plugin string) (ConfigData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.configs[plugin]; ok {
		return c.Clone(), nil
	}
	return ConfigData{}, nil
}

func (m *Memory) SaveConfig(_ context.Context, plugin string, data ConfigData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[plugin] = data.Clone()
	return nil
}

func (m *Memory) LoadSettings(_ context.Context, tenant string) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[tenant].Clone(), nil
}

func (m *Memory) SaveSettings(_ context.Context, tenant string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[tenant] = s.Clone()
	return nil
}
