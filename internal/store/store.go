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

// Package store persists plugin configuration blobs and per-tenant settings.
// Callers load, mutate and save explicitly; nothing is written implicitly.
package store

import (
	"context"
	"errors"
	"slices"
)

// EnabledPluginsKey holds the globally enabled plugin names in core's config.
const EnabledPluginsKey = "ENABLED_PLUGINS"

var ErrUnavailable = errors.New("store unavailable")

// ConfigData is an arbitrary per-plugin JSON document.
type ConfigData map[string]any

// Settings is the per-tenant document.
type Settings struct {
	EnabledPlugins   []string `json:"enabled_plugins" bson:"enabled_plugins"`
	DisabledCommands []string `json:"disabled_commands,omitempty" bson:"disabled_commands,omitempty"`
}

// ConfigStore is keyed by plugin name.
type ConfigStore interface {
	LoadConfig(ctx context.Context, plugin string) (ConfigData, error)
	SaveConfig(ctx context.Context, plugin string, data ConfigData) error
}

// SettingsStore is keyed by tenant id.
type SettingsStore interface {
	LoadSettings(ctx context.Context, tenant string) (Settings, error)
	SaveSettings(ctx context.Context, tenant string, s Settings) error
}

// Backend serves both documents from one database.
type Backend interface {
	ConfigStore
	SettingsStore
}

// EnabledPlugins reads ENABLED_PLUGINS, tolerating decoded JSON arrays.
func (c ConfigData) EnabledPlugins() []string {
	switch v := c[EnabledPluginsKey].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SetEnabledPlugins replaces ENABLED_PLUGINS.
func (c ConfigData) SetEnabledPlugins(names []string) {
	if names == nil {
		names = []string{}
	}
	c[EnabledPluginsKey] = slices.Clone(names)
}

// Clone copies the top level of c.
func (c ConfigData) Clone() ConfigData {
	out := make(ConfigData, len(c))
	for k, v := range c {
		if s, ok := v.([]string); ok {
			v = slices.Clone(s)
		}
		out[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	return Settings{
		EnabledPlugins:   slices.Clone(s.EnabledPlugins),
		DisabledCommands: slices.Clone(s.DisabledCommands),
	}
}

// HasPlugin reports whether name is enabled for the tenant.
func (s Settings) HasPlugin(name string) bool {
	return slices.Contains(s.EnabledPlugins, name)
}
