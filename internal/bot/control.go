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
	"encoding/json"
	"errors"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/pkg/i18n"
	"github.com/go-strange/strange/pkg/log"
)

// Control verbs served under the dashboard namespace.
const (
	VerbValidateGuild   = "VALIDATE_GUILD"
	VerbGetBotGuilds    = "GET_BOT_GUILDS"
	VerbGetGuildStats   = "GET_GUILD_STATS"
	VerbGetCmdsSummary  = "GET_CMDS_SUMMARY"
	VerbGetPluginCmds   = "GET_PLUGIN_CMDS"
	VerbGetLocaleBundle = "GET_LOCALE_BUNDLE"
	VerbSetLocaleBundle = "SET_LOCALE_BUNDLE"
	VerbUpdatePlugin    = "UPDATE_PLUGIN"
)

// UPDATE_PLUGIN actions.
const (
	ActionEnable       = "enable"
	ActionDisable      = "disable"
	ActionInstall      = "install"
	ActionUninstall    = "uninstall"
	ActionGuildEnable  = "guildEnable"
	ActionGuildDisable = "guildDisable"
)

var ErrInvalidAction = errors.New("Invalid action")

// UpdatePluginRequest is the UPDATE_PLUGIN payload.
type UpdatePluginRequest struct {
	PluginName string `json:"pluginName"`
	Action     string `json:"action"`
	GuildID    string `json:"guildId,omitempty"`
}

// PluginCmdsRequest is the GET_PLUGIN_CMDS payload. An empty Type asks for
// both lists.
type PluginCmdsRequest struct {
	PluginName string      `json:"pluginName"`
	Type       CommandType `json:"type,omitempty"`
}

// LocaleBundleRequest is the SET_LOCALE_BUNDLE payload.
type LocaleBundleRequest struct {
	Plugin   string         `json:"plugin"`
	Language string         `json:"language"`
	Keys     i18n.Resources `json:"keys"`
}

// RegisterControl installs the control verbs on r.
func (b *Bot) RegisterControl(r *ipc.Router) {
	r.HandleControl(VerbValidateGuild, b.validateGuild)
	r.HandleControl(VerbGetBotGuilds, b.botGuilds)
	r.HandleControl(VerbGetGuildStats, b.guildStats)
	r.HandleControl(VerbGetCmdsSummary, b.cmdsSummary)
	r.HandleControl(VerbGetPluginCmds, b.pluginCmds)
	r.HandleControl(VerbGetLocaleBundle, b.localeBundle)
	r.HandleControl(VerbSetLocaleBundle, b.setLocaleBundle)
	r.HandleControl(VerbUpdatePlugin, b.updatePlugin)
}

// NewRouter returns an IPC router serving the control verbs and the IPC
// handlers of the live plugins.
func (b *Bot) NewRouter() *ipc.Router {
	r := ipc.NewRouter(b)
	b.RegisterControl(r)
	return r
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return sonic.Unmarshal(payload, v)
}

func (b *Bot) validateGuild(_ context.Context, payload json.RawMessage) (any, error) {
	var tenant string
	if err := decode(payload, &tenant); err != nil {
		return nil, err
	}
	return b.platform.HasTenant(tenant), nil
}

func (b *Bot) botGuilds(context.Context, json.RawMessage) (any, error) {
	return b.platform.Tenants(), nil
}

func (b *Bot) guildStats(_ context.Context, payload json.RawMessage) (any, error) {
	var tenant string
	if err := decode(payload, &tenant); err != nil {
		return nil, err
	}
	stats, ok := b.platform.Stats(tenant)
	if !ok {
		return nil, nil
	}
	return stats, nil
}

func (b *Bot) cmdsSummary(context.Context, json.RawMessage) (any, error) {
	out := make(map[string]PluginSummary)
	for _, p := range b.manager.Plugins() {
		prefix, slash := countCommands(p)
		out[p.Name] = PluginSummary{PrefixCount: prefix, SlashCount: slash}
	}
	return out, nil
}

func (b *Bot) pluginCmds(_ context.Context, payload json.RawMessage) (any, error) {
	var req PluginCmdsRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return b.commands.PluginCommands(req.PluginName, req.Type, b.locales.Tr), nil
}

func (b *Bot) localeBundle(context.Context, json.RawMessage) (any, error) {
	return b.locales.Snapshot(b.manager.Names()), nil
}

func (b *Bot) setLocaleBundle(_ context.Context, payload json.RawMessage) (any, error) {
	var req LocaleBundleRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Plugin == "" || req.Language == "" {
		return nil, errors.New("plugin and language are required")
	}
	b.locales.Update(req.Plugin, req.Language, req.Keys)
	return nil, nil
}

func (b *Bot) updatePlugin(ctx context.Context, payload json.RawMessage) (any, error) {
	var req UpdatePluginRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	log.Infow("plugin update requested", "plugin", req.PluginName, "action", req.Action, "tenant", req.GuildID)

	m := b.manager
	var err error
	switch req.Action {
	case ActionEnable:
		// persisted by the manager, the dashboard hosts it
		if err = m.Enable(ctx, req.PluginName); errors.Is(err, plugin.ErrNoEntryPoint) {
			err = nil
		}
	case ActionDisable:
		err = m.Disable(ctx, req.PluginName)
	case ActionInstall:
		err = m.Install(ctx, req.PluginName, plugin.InstallOptions{})
	case ActionUninstall:
		err = m.Uninstall(ctx, req.PluginName)
	case ActionGuildEnable:
		if !b.platform.HasTenant(req.GuildID) {
			return nil, nil
		}
		err = m.EnableInTenant(ctx, req.PluginName, req.GuildID)
	case ActionGuildDisable:
		if !b.platform.HasTenant(req.GuildID) {
			return nil, nil
		}
		err = m.DisableInTenant(ctx, req.PluginName, req.GuildID)
	default:
		return nil, ErrInvalidAction
	}
	return nil, err
}
