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

// Package dashboard is the admin side of the plugin system. Every change is
// applied locally and then broadcast to the bot shards; when a shard
// rejects it the local change is reverted and the shards are asked to undo.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/go-strange/strange/internal/bot"
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/pkg/log"
)

// ActionUpdate reinstalls a plugin at its registry version. Shards are only
// told to disable it.
const ActionUpdate = "update"

var updateEvent = ipc.Event(ipc.ControlNamespace, bot.VerbUpdatePlugin)

// Broadcaster reaches the bot shards.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any) []ipc.Reply
	BroadcastOne(ctx context.Context, event string, payload any) ipc.Reply
}

// ShardError reports a change a shard did not apply.
type ShardError struct {
	Action string
	Plugin string
	Reason string
}

func (e *ShardError) Error() string {
	msg := fmt.Sprintf("failed to %s plugin %s on other instances", e.Action, e.Plugin)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Service runs the admin flows of the dashboard.
type Service struct {
	manager *plugin.Manager
	shards  Broadcaster
}

func NewService(manager *plugin.Manager, shards Broadcaster) *Service {
	return &Service{manager: manager, shards: shards}
}

func (s *Service) Manager() *plugin.Manager {
	return s.manager
}

// Plugins lists the registry joined with the local state.
func (s *Service) Plugins(ctx context.Context) ([]plugin.Meta, error) {
	return s.manager.PluginsMeta(ctx)
}

// UpdatePlugin applies a global action.
func (s *Service) UpdatePlugin(ctx context.Context, name, action string) error {
	logger := log.With("plugin", name, "action", action)
	switch action {
	case bot.ActionEnable:
		return s.enable(ctx, name)
	case bot.ActionDisable:
		return s.disable(ctx, name)
	case bot.ActionInstall:
		// the shard verifies dependencies, the dashboard may not host them
		if r := s.shards.BroadcastOne(ctx, updateEvent, request(name, bot.ActionInstall, "")); !r.Success {
			return &ShardError{Action: bot.ActionInstall, Plugin: name, Reason: r.Error}
		}
		return s.manager.Install(ctx, name, plugin.InstallOptions{SkipVerify: true})
	case bot.ActionUninstall:
		if r := s.shards.BroadcastOne(ctx, updateEvent, request(name, bot.ActionUninstall, "")); !r.Success {
			return &ShardError{Action: bot.ActionUninstall, Plugin: name, Reason: r.Error}
		}
		return s.manager.Uninstall(ctx, name)
	case ActionUpdate:
		if s.manager.GloballyEnabled(ctx, name) {
			if err := s.disable(ctx, name); err != nil {
				return err
			}
		}
		if err := s.manager.Update(ctx, name); err != nil {
			return err
		}
		logger.Infow("plugin updated")
		return nil
	default:
		return bot.ErrInvalidAction
	}
}

func (s *Service) enable(ctx context.Context, name string) error {
	if err := s.manager.Enable(ctx, name); err != nil {
		if !errors.Is(err, plugin.ErrNoEntryPoint) {
			return err
		}
		log.Debugw("plugin has no dashboard entry point", "plugin", name)
	}

	replies := s.shards.Broadcast(ctx, updateEvent, request(name, bot.ActionEnable, ""))
	if reason, failed := firstFailure(replies); failed {
		// also drops a plugin without a dashboard entry from ENABLED_PLUGINS
		if err := s.manager.Disable(ctx, name); err != nil {
			log.Errorw("compensation: local disable failed", "plugin", name, "error", err)
		}
		s.undo(ctx, request(name, bot.ActionDisable, ""))
		return &ShardError{Action: bot.ActionEnable, Plugin: name, Reason: reason}
	}
	return nil
}

func (s *Service) disable(ctx context.Context, name string) error {
	enabled := s.manager.GloballyEnabled(ctx, name)
	if err := s.manager.Disable(ctx, name); err != nil {
		return err
	}

	replies := s.shards.Broadcast(ctx, updateEvent, request(name, bot.ActionDisable, ""))
	if reason, failed := firstFailure(replies); failed {
		if enabled {
			err := s.manager.Enable(ctx, name)
			if err != nil && !errors.Is(err, plugin.ErrNoEntryPoint) {
				log.Errorw("compensation: local enable failed", "plugin", name, "error", err)
			}
		}
		s.undo(ctx, request(name, bot.ActionEnable, ""))
		return &ShardError{Action: bot.ActionDisable, Plugin: name, Reason: reason}
	}
	return nil
}

// UpdateInTenant turns a plugin on or off for one tenant.
func (s *Service) UpdateInTenant(ctx context.Context, name, tenant string, enable bool) error {
	action, inverse := bot.ActionGuildEnable, bot.ActionGuildDisable
	apply, revert := s.manager.EnableInTenant, s.manager.DisableInTenant
	if !enable {
		action, inverse = inverse, action
		apply, revert = revert, apply
	}

	local := true
	if err := apply(ctx, name, tenant); err != nil {
		// not enabled anywhere, the shards report it
		if !errors.Is(err, plugin.ErrNotEnabled) {
			return err
		}
		local = false
	}

	replies := s.shards.Broadcast(ctx, updateEvent, request(name, action, tenant))
	if reason, failed := firstFailure(replies); failed {
		if local {
			if err := revert(ctx, name, tenant); err != nil {
				log.Errorw("compensation: local tenant change failed", "plugin", name, "tenant", tenant, "error", err)
			}
		}
		s.undo(ctx, request(name, inverse, tenant))
		return &ShardError{Action: action, Plugin: name, Reason: reason}
	}
	return nil
}

// undo asks every shard to revert. Failures are logged only.
func (s *Service) undo(ctx context.Context, req bot.UpdatePluginRequest) {
	for _, r := range s.shards.Broadcast(ctx, updateEvent, req) {
		if !r.Success {
			log.Warnw("compensation: shard did not revert", "plugin", req.PluginName, "action", req.Action, "error", r.Error)
		}
	}
}

// BotGuilds is the union of the tenants of every shard.
func (s *Service) BotGuilds(ctx context.Context) []string {
	var out []string
	for _, r := range s.shards.Broadcast(ctx, control(bot.VerbGetBotGuilds), nil) {
		var ids []string
		if !r.Success || r.Decode(&ids) != nil {
			continue
		}
		out = append(out, ids...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ValidateGuild reports whether any shard serves tenant.
func (s *Service) ValidateGuild(ctx context.Context, tenant string) bool {
	for _, r := range s.shards.Broadcast(ctx, control(bot.VerbValidateGuild), tenant) {
		var ok bool
		if r.Success && r.Decode(&ok) == nil && ok {
			return true
		}
	}
	return false
}

// GuildStats returns the stats of the shard serving tenant, or nil.
func (s *Service) GuildStats(ctx context.Context, tenant string) *bot.TenantStats {
	for _, r := range s.shards.Broadcast(ctx, control(bot.VerbGetGuildStats), tenant) {
		var stats *bot.TenantStats
		if r.Success && r.Decode(&stats) == nil && stats != nil {
			return stats
		}
	}
	return nil
}

func (s *Service) CommandsSummary(ctx context.Context) (map[string]bot.PluginSummary, error) {
	var out map[string]bot.PluginSummary
	return out, s.one(ctx, bot.VerbGetCmdsSummary, nil, &out)
}

func (s *Service) PluginCommands(ctx context.Context, name string, typ bot.CommandType) (map[bot.CommandType][]bot.CommandInfo, error) {
	var out map[bot.CommandType][]bot.CommandInfo
	return out, s.one(ctx, bot.VerbGetPluginCmds, bot.PluginCmdsRequest{PluginName: name, Type: typ}, &out)
}

// BotLocales returns the locale bundles of the first shard.
func (s *Service) BotLocales(ctx context.Context) (json.RawMessage, error) {
	r := s.shards.BroadcastOne(ctx, control(bot.VerbGetLocaleBundle), nil)
	if !r.Success {
		return nil, &ShardError{Action: "read locales of", Plugin: "bot", Reason: r.Error}
	}
	return r.Data, nil
}

// UpdateBotLocales merges keys into a bundle on every shard.
func (s *Service) UpdateBotLocales(ctx context.Context, req bot.LocaleBundleRequest) error {
	if req.Plugin == "" || req.Language == "" {
		return errors.New("plugin and language are required")
	}
	replies := s.shards.Broadcast(ctx, control(bot.VerbSetLocaleBundle), req)
	if reason, failed := firstFailure(replies); failed {
		return &ShardError{Action: "update locales of", Plugin: req.Plugin, Reason: reason}
	}
	return nil
}

func (s *Service) one(ctx context.Context, verb string, payload, out any) error {
	r := s.shards.BroadcastOne(ctx, control(verb), payload)
	if !r.Success {
		return &ShardError{Action: "query", Plugin: "bot", Reason: r.Error}
	}
	return r.Decode(out)
}

func control(verb string) string {
	return ipc.Event(ipc.ControlNamespace, verb)
}

func request(name, action, tenant string) bot.UpdatePluginRequest {
	return bot.UpdatePluginRequest{PluginName: name, Action: action, GuildID: tenant}
}

func firstFailure(replies []ipc.Reply) (string, bool) {
	for _, r := range replies {
		if !r.Success {
			return r.Error, true
		}
	}
	return "", false
}
