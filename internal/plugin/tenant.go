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
	"context"
	"fmt"
	"slices"

	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/safe"
)

// EnableInTenant turns a globally enabled plugin on for one tenant. A
// plugin running only in the other process has just its settings updated.
func (m *Manager) EnableInTenant(ctx context.Context, name, tenant string) (err error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	defer func() { metrics.RecordLifecycle("tenant_enable", name, err) }()

	if tenant == "" {
		return fmt.Errorf("tenant id is required")
	}
	p, ok := m.Get(name)
	if !ok {
		enabled, err := m.enabledNames(ctx)
		if err != nil {
			return err
		}
		if !m.remote(name, enabled) {
			return newError(ErrNotEnabled, "plugin %s is not enabled", name)
		}
		if err := m.editTenant(ctx, tenant, addName(name)); err != nil {
			return err
		}
		log.Infow("plugin enabled in tenant, no entry point in this process", "plugin", name, "tenant", tenant)
		return nil
	}
	if e, ok := p.Instance.(TenantEnabler); ok {
		if err := safe.Try(func() error { return e.OnTenantEnable(ctx, tenant) }); err != nil {
			return fmt.Errorf("enable %s in %s: %w", name, tenant, err)
		}
	}
	if err := m.editTenant(ctx, tenant, addName(name)); err != nil {
		return err
	}
	if err := m.host.TenantChanged(ctx, name, tenant, true); err != nil {
		return err
	}
	log.Infow("plugin enabled in tenant", "plugin", name, "tenant", tenant)
	return nil
}

// DisableInTenant turns a plugin off for one tenant. Core stays on.
func (m *Manager) DisableInTenant(ctx context.Context, name, tenant string) (err error) {
	if name == CoreName {
		return newError(ErrCoreRequired, "cannot disable core plugin")
	}
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	defer func() { metrics.RecordLifecycle("tenant_disable", name, err) }()

	if tenant == "" {
		return fmt.Errorf("tenant id is required")
	}
	if p, ok := m.Get(name); ok {
		if d, ok := p.Instance.(TenantDisabler); ok {
			if err := safe.Try(func() error { return d.OnTenantDisable(ctx, tenant) }); err != nil {
				return fmt.Errorf("disable %s in %s: %w", name, tenant, err)
			}
		}
	}
	if err := m.editTenant(ctx, tenant, removeName(name)); err != nil {
		return err
	}
	if err := m.host.TenantChanged(ctx, name, tenant, false); err != nil {
		return err
	}
	log.Infow("plugin disabled in tenant", "plugin", name, "tenant", tenant)
	return nil
}

// TenantPlugins returns the live plugins active for tenant. An empty tenant,
// a store error or an empty tenant list yields every live plugin.
func (m *Manager) TenantPlugins(ctx context.Context, tenant string) []string {
	live := m.Names()
	if tenant == "" || m.settings == nil {
		return live
	}
	s, err := m.settings.LoadSettings(ctx, tenant)
	if err != nil {
		log.Debugw("failed to load tenant settings", "tenant", tenant, "error", err)
		return live
	}
	if len(s.EnabledPlugins) == 0 {
		return live
	}
	return slices.DeleteFunc(live, func(n string) bool { return !s.HasPlugin(n) })
}

func (m *Manager) editTenant(ctx context.Context, tenant string, edit func([]string) []string) error {
	s, err := m.settings.LoadSettings(ctx, tenant)
	if err != nil {
		return fmt.Errorf("load settings of %s: %w", tenant, err)
	}
	after := edit(slices.Clone(s.EnabledPlugins))
	if slices.Equal(s.EnabledPlugins, after) {
		return nil
	}
	s.EnabledPlugins = after
	if err := m.settings.SaveSettings(ctx, tenant, s); err != nil {
		return fmt.Errorf("save settings of %s: %w", tenant, err)
	}
	return nil
}
