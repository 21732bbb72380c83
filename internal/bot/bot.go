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

// Package bot hosts plugins inside a gateway shard: it indexes their
// commands, keeps each tenant's registered interactions in sync through a
// rate-limited queue, fans gateway events out to plugin handlers and serves
// the control verbs the dashboard sends over IPC.
package bot

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/go-strange/strange/pkg/i18n"
	"github.com/go-strange/strange/pkg/log"
)

// InteractionsKey holds the SLASH and CONTEXT switches in core's config.
const InteractionsKey = "INTERACTIONS"

// Bot is the plugin.Host of a shard process.
type Bot struct {
	manager  *plugin.Manager
	commands *CommandManager
	queue    *RegistrationQueue
	platform Platform
	locales  *i18n.Bundles
	configs  store.ConfigStore

	mu     sync.RWMutex
	events map[string]int
}

// New wires a Bot as the host of manager.
func New(manager *plugin.Manager, platform Platform, locales *i18n.Bundles, configs store.ConfigStore, qc conf.QueueConfig) *Bot {
	if locales == nil {
		locales = i18n.New()
	}
	b := &Bot{
		manager:  manager,
		commands: NewCommandManager(),
		platform: platform,
		locales:  locales,
		configs:  configs,
		events:   make(map[string]int),
	}
	b.queue = NewRegistrationQueue(qc, b.registerTenant)
	manager.SetHost(b)
	return b
}

func (b *Bot) Manager() *plugin.Manager {
	return b.manager
}

func (b *Bot) Commands() *CommandManager {
	return b.commands
}

func (b *Bot) Queue() *RegistrationQueue {
	return b.queue
}

func (b *Bot) Locales() *i18n.Bundles {
	return b.locales
}

func (b *Bot) Platform() Platform {
	return b.platform
}

// Start enables the persisted plugins, schedules the queue cleanup and
// registers the interactions of every tenant.
func (b *Bot) Start(ctx context.Context, scheduler *cron.Cron) error {
	if err := b.manager.Init(ctx); err != nil {
		return err
	}
	if scheduler != nil {
		if err := b.queue.Schedule(scheduler); err != nil {
			return fmt.Errorf("schedule registration cleanup: %w", err)
		}
	}
	for _, tenant := range b.platform.Tenants() {
		b.queue.Enqueue(tenant, false)
	}
	b.queue.Kick()
	log.Infow("bot started", "plugins", b.manager.Names(), "events", b.ListeningEvents())
	return nil
}

// Stop halts the queue and disables the plugins without persisting.
func (b *Bot) Stop(ctx context.Context) error {
	b.queue.Close()
	return b.manager.Shutdown(ctx)
}

// ListeningEvents is the union of the event names handled by live plugins.
func (b *Bot) ListeningEvents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.events))
}

// IPCHandler finds a live plugin's handler for verb.
func (b *Bot) IPCHandler(name, verb string) (plugin.IPCHandler, bool) {
	p, ok := b.manager.Get(name)
	if !ok {
		return nil, false
	}
	return p.IPCHandler(verb)
}

// UpdatePluginStatus queues a registration for tenant, or for every tenant
// of the platform when tenant is empty.
func (b *Bot) UpdatePluginStatus(name string, enabled bool, tenant string) {
	if tenant != "" {
		log.Debugw("plugin status changed in tenant", "plugin", name, "enabled", enabled, "tenant", tenant)
		b.queue.Register(tenant, false)
		return
	}
	log.Debugw("plugin status changed globally", "plugin", name, "enabled", enabled)
	for _, t := range b.platform.Tenants() {
		b.queue.Enqueue(t, false)
	}
	b.queue.Kick()
}

func (b *Bot) PostInstall(context.Context, plugin.Descriptor, string) error {
	return nil
}

func (b *Bot) PreUninstall(context.Context, string) error {
	return nil
}

// Attach indexes the commands and events of p.
func (b *Bot) Attach(_ context.Context, p *plugin.Plugin) error {
	if err := b.commands.RegisterPlugin(p); err != nil {
		return err
	}
	b.mu.Lock()
	for event := range p.Capabilities.EventHandlers {
		b.events[event]++
	}
	b.mu.Unlock()
	b.UpdatePluginStatus(p.Name, true, "")
	return nil
}

// Detach drops the commands, events and translations of p. Events still
// handled by another plugin stay registered.
func (b *Bot) Detach(_ context.Context, p *plugin.Plugin) error {
	b.mu.Lock()
	for event := range p.Capabilities.EventHandlers {
		if b.events[event]--; b.events[event] <= 0 {
			delete(b.events, event)
		}
	}
	b.mu.Unlock()
	b.commands.UnregisterPlugin(p.Name)
	b.locales.Remove(p.Name)
	b.UpdatePluginStatus(p.Name, false, "")
	return nil
}

func (b *Bot) TenantChanged(_ context.Context, name, tenant string, enabled bool) error {
	if !b.platform.HasTenant(tenant) {
		log.Debugw("tenant not on this shard, skipping registration", "plugin", name, "tenant", tenant)
		return nil
	}
	b.UpdatePluginStatus(name, enabled, tenant)
	return nil
}

// registerTenant pushes the interactions of the plugins active in tenant.
// A plugin is active when it is globally enabled and force is set, the
// tenant list is empty, or the list names it.
func (b *Bot) registerTenant(ctx context.Context, tenant string, force bool) error {
	if !b.platform.HasTenant(tenant) {
		return fmt.Errorf("tenant %s not found", tenant)
	}
	slash, contexts := b.interactionSwitches(ctx)
	if !slash && !contexts {
		log.Debugw("skipping command registration, no interactions enabled", "tenant", tenant)
		return nil
	}

	var enabled []string
	if settings := b.manager.Settings(); !force && settings != nil {
		s, err := settings.LoadSettings(ctx, tenant)
		if err != nil {
			log.Debugw("could not load tenant settings", "tenant", tenant, "error", err)
		} else {
			enabled = s.EnabledPlugins
		}
	}
	active := func(name string) bool {
		if !b.manager.IsEnabled(name) {
			return false
		}
		return force || len(enabled) == 0 || slices.Contains(enabled, name)
	}

	items := b.commands.Interactions(active, slash, contexts, b.locales.Tr)
	if err := b.platform.SetInteractions(ctx, tenant, items); err != nil {
		return err
	}
	log.Debugw("registered interactions", "tenant", tenant, "count", len(items))
	return nil
}

// interactionSwitches reads INTERACTIONS from core's config. Missing
// switches default to on.
func (b *Bot) interactionSwitches(ctx context.Context) (slash, contexts bool) {
	slash, contexts = true, true
	if b.configs == nil {
		return
	}
	cfg, err := b.configs.LoadConfig(ctx, plugin.CoreName)
	if err != nil {
		log.Debugw("could not load core config", "error", err)
		return
	}
	sw, ok := cfg[InteractionsKey].(map[string]any)
	if !ok {
		return
	}
	if v, ok := sw["SLASH"].(bool); ok {
		slash = v
	}
	if v, ok := sw["CONTEXT"].(bool); ok {
		contexts = v
	}
	return
}
