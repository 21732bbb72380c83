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
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	"github.com/go-strange/strange/pkg/i18n"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	ProvideManager,
	ProvideLocales,
	NewMemoryPlatform,
	wire.Bind(new(Platform), new(*MemoryPlatform)),
	New,
	ProvideHandler,
	NewShard,
)

func ProvideManager(
	source plugin.Source,
	repos plugin.Syncer,
	installer *plugin.Installer,
	locker *plugin.Locker,
	configs store.ConfigStore,
	settings store.SettingsStore,
) *plugin.Manager {
	return plugin.NewManager(plugin.KindBot, nil, source, repos, installer, locker, configs, settings, plugin.DefaultFactories())
}

func ProvideLocales() *i18n.Bundles {
	return i18n.New(i18n.DefaultLanguage)
}

// ProvideHandler routes the messages received by the IPC client.
func ProvideHandler(b *Bot) ipc.Handler {
	return b.NewRouter()
}
