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

package dashboard

import (
	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	ProvideHost,
	ProvideManager,
	NewService,
	wire.Bind(new(Broadcaster), new(*ipc.Server)),
	NewRouter,
	New,
)

func ProvideHost(c conf.PluginConfig, h httpx.Http, installer *plugin.Installer) *Host {
	return NewHost(installer, c.PostInstallCommand, PluginBase(h))
}

func ProvideManager(
	host *Host,
	source plugin.Source,
	repos plugin.Syncer,
	installer *plugin.Installer,
	locker *plugin.Locker,
	configs store.ConfigStore,
	settings store.SettingsStore,
) *plugin.Manager {
	return plugin.NewManager(plugin.KindDashboard, host, source, repos, installer, locker, configs, settings, plugin.DefaultFactories())
}
