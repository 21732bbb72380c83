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
	"path/filepath"

	"github.com/go-strange/strange/internal/conf"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	ProvideLocker,
	ProvideRegistryClient,
	ProvideRepoSync,
	ProvideInstaller,
	wire.Bind(new(Source), new(*RegistryClient)),
	wire.Bind(new(Syncer), new(*RepoSync)),
)

func ProvideLocker(c conf.PluginConfig) *Locker {
	return NewLocker(c.LockAttempts, nil)
}

func ProvideRegistryClient(c conf.PluginConfig) *RegistryClient {
	return NewRegistryClient(c.RegistryPath, WithFetchAttempts(c.FetchAttempts))
}

func ProvideRepoSync(c conf.PluginConfig, locker *Locker) *RepoSync {
	dir := c.RepoCacheDir
	if dir == "" {
		dir = filepath.Join(c.PluginsDir, ".repos")
	}
	return NewRepoSync(dir, c.Branch, c.Depth, locker)
}

func ProvideInstaller(c conf.PluginConfig) *Installer {
	return NewInstaller(c.PluginsDir, c.InstallCommand, ExecRunner)
}
