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

// Package core is the built-in plugin both processes enable first. It owns
// the plugin configuration blobs and the per-tenant settings.
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
)

func init() {
	plugin.Register(plugin.CoreName, plugin.KindBot, func() plugin.Instance { return &Bot{} })
	plugin.Register(plugin.CoreName, plugin.KindDashboard, func() plugin.Instance { return &Dashboard{} })
}

var ErrNotEnabled = errors.New("core plugin is not enabled")

// service holds the stores handed over by OnEnable.
type service struct {
	mu       sync.RWMutex
	configs  store.ConfigStore
	settings store.SettingsStore
}

func (s *service) OnEnable(_ context.Context, svc plugin.Services) error {
	if svc.Config == nil || svc.Settings == nil {
		return errors.New("config and settings stores are required")
	}
	s.mu.Lock()
	s.configs, s.settings = svc.Config, svc.Settings
	s.mu.Unlock()
	if svc.Logger != nil {
		svc.Logger.Debugw("core services ready")
	}
	return nil
}

func (s *service) OnDisable(context.Context) error {
	s.mu.Lock()
	s.configs, s.settings = nil, nil
	s.mu.Unlock()
	return nil
}

func (s *service) stores() (store.ConfigStore, store.SettingsStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.configs == nil {
		return nil, nil, ErrNotEnabled
	}
	return s.configs, s.settings, nil
}

// Config returns the configuration blob of the plugin name.
func (s *service) Config(ctx context.Context, name string) (store.ConfigData, error) {
	configs, _, err := s.stores()
	if err != nil {
		return nil, err
	}
	return configs.LoadConfig(ctx, name)
}

// SaveConfig replaces the blob of name. ENABLED_PLUGINS in core's blob is
// owned by the plugin manager and always kept.
func (s *service) SaveConfig(ctx context.Context, name string, data store.ConfigData) error {
	configs, _, err := s.stores()
	if err != nil {
		return err
	}
	if data == nil {
		data = store.ConfigData{}
	}
	data = data.Clone()
	if name == plugin.CoreName {
		cur, err := configs.LoadConfig(ctx, plugin.CoreName)
		if err != nil {
			return fmt.Errorf("load core config: %w", err)
		}
		data.SetEnabledPlugins(cur.EnabledPlugins())
	}
	return configs.SaveConfig(ctx, name, data)
}

// Settings returns the settings of tenant.
func (s *service) Settings(ctx context.Context, tenant string) (store.Settings, error) {
	_, settings, err := s.stores()
	if err != nil {
		return store.Settings{}, err
	}
	return settings.LoadSettings(ctx, tenant)
}

// SetDisabledCommands replaces the commands turned off in tenant.
func (s *service) SetDisabledCommands(ctx context.Context, tenant string, commands []string) error {
	_, settings, err := s.stores()
	if err != nil {
		return err
	}
	cur, err := settings.LoadSettings(ctx, tenant)
	if err != nil {
		return err
	}
	commands = slices.Compact(slices.Sorted(slices.Values(commands)))
	cur.DisabledCommands = commands
	return settings.SaveSettings(ctx, tenant, cur)
}
