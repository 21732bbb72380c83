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

package core

import (
	"context"
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/plugin"
)

// IPC verbs of the core namespace.
const (
	VerbGetConfig   = "GET_CONFIG"
	VerbGetSettings = "GET_SETTINGS"
)

// Bot is the bot entry point. It answers config and settings reads from
// the dashboard.
type Bot struct {
	service
}

func (b *Bot) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{
		IPCHandlers: map[string]plugin.IPCHandler{
			VerbGetConfig:   b.getConfig,
			VerbGetSettings: b.getSettings,
		},
	}
}

func decodeName(payload json.RawMessage) (string, error) {
	var name string
	if len(payload) == 0 {
		return name, nil
	}
	err := sonic.Unmarshal(payload, &name)
	return name, err
}

// getConfig reads the blob of the plugin named in the payload, core when
// empty.
func (b *Bot) getConfig(ctx context.Context, payload json.RawMessage) (any, error) {
	name, err := decodeName(payload)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = plugin.CoreName
	}
	return b.Config(ctx, name)
}

func (b *Bot) getSettings(ctx context.Context, payload json.RawMessage) (any, error) {
	tenant, err := decodeName(payload)
	if err != nil {
		return nil, err
	}
	return b.Settings(ctx, tenant)
}
