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

package bot

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// InteractionKind is the application command type pushed to a tenant.
type InteractionKind string

const (
	InteractionSlash   InteractionKind = "slash"
	InteractionUser    InteractionKind = "user"
	InteractionMessage InteractionKind = "message"
)

// Interaction is one application command registered in a tenant.
type Interaction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Kind        InteractionKind `json:"type"`
}

type ChannelStats struct {
	Text  int `json:"text"`
	Voice int `json:"voice"`
}

// TenantStats is the GET_GUILD_STATS payload.
type TenantStats struct {
	Channels ChannelStats `json:"channels"`
	Roles    int          `json:"roles"`
	Members  int          `json:"members"`
}

// Platform is the chat gateway the shard is connected to.
type Platform interface {
	Tenants() []string
	HasTenant(id string) bool
	Stats(id string) (TenantStats, bool)
	SetInteractions(ctx context.Context, tenant string, items []Interaction) error
}

// MemoryPlatform keeps tenants in memory. It backs local runs and tests.
type MemoryPlatform struct {
	mu           sync.RWMutex
	tenants      map[string]TenantStats
	interactions map[string][]Interaction
	pushes       map[string]int
}

func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{
		tenants:      make(map[string]TenantStats),
		interactions: make(map[string][]Interaction),
		pushes:       make(map[string]int),
	}
}

// Join adds or replaces a tenant.
func (p *MemoryPlatform) Join(id string, stats TenantStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenants[id] = stats
}

func (p *MemoryPlatform) Leave(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tenants, id)
	delete(p.interactions, id)
}

// Tenants returns the tenant ids sorted.
func (p *MemoryPlatform) Tenants() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.tenants))
	for id := range p.tenants {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (p *MemoryPlatform) HasTenant(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.tenants[id]
	return ok
}

func (p *MemoryPlatform) Stats(id string) (TenantStats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.tenants[id]
	return s, ok
}

func (p *MemoryPlatform) SetInteractions(_ context.Context, tenant string, items []Interaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tenants[tenant]; !ok {
		return fmt.Errorf("tenant %s not found", tenant)
	}
	p.interactions[tenant] = slices.Clone(items)
	p.pushes[tenant]++
	return nil
}

// Interactions returns what was last pushed to tenant.
func (p *MemoryPlatform) Interactions(tenant string) []Interaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.interactions[tenant])
}

// Pushes counts SetInteractions calls for tenant.
func (p *MemoryPlatform) Pushes(tenant string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pushes[tenant]
}
