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

// Package plugin installs, resolves and runs the plugins of one process.
// Descriptors come from the registry, files live under the plugins
// directory, and the live map holds the instances enabled in this process.
package plugin

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/Masterminds/semver/v3"
)

// CoreName is the plugin every process enables first. A dependency on it is
// satisfied only by a live core.
const CoreName = "core"

// Descriptor is one registry entry.
type Descriptor struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Author         string   `json:"author,omitempty"`
	Repository     string   `json:"repository"`
	RepositoryPath string   `json:"repositoryPath,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

func (d Descriptor) NodeName() string {
	return d.Name
}

func (d Descriptor) PrevNodeNames() []string {
	return d.Dependencies
}

// DependsOn reports whether name is a direct dependency.
func (d Descriptor) DependsOn(name string) bool {
	return slices.Contains(d.Dependencies, name)
}

// Validate checks the fields needed to install the plugin.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("registry entry without name")
	}
	if d.Repository == "" {
		return fmt.Errorf("plugin %s has no repository", d.Name)
	}
	if d.RepositoryPath != "" && !filepath.IsLocal(d.RepositoryPath) {
		return fmt.Errorf("plugin %s has repository path outside the repository: %s", d.Name, d.RepositoryPath)
	}
	if _, err := semver.NewVersion(d.Version); err != nil {
		return fmt.Errorf("plugin %s has invalid version %q: %w", d.Name, d.Version, err)
	}
	for _, dep := range d.Dependencies {
		if dep == "" {
			return fmt.Errorf("plugin %s has an empty dependency", d.Name)
		}
	}
	return nil
}

// InstallState describes the files on disk.
type InstallState struct {
	Installed      bool   `json:"installed"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	HasUpdate      bool   `json:"hasUpdate"`
}

// Meta is a descriptor joined with its install and enable state.
type Meta struct {
	Descriptor
	InstallState
	Enabled bool `json:"enabled"`
}

// hasUpdate is true when an installed plugin is older than the registry.
// Unparseable versions never report an update.
func hasUpdate(installed bool, current, latest string) bool {
	if !installed || current == "" {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	reg, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return cur.LessThan(reg)
}
