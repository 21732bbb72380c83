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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/pkg/id"
	"github.com/go-strange/strange/pkg/log"
)

const (
	manifestFile = "plugin.json"
	markerFile   = ".installed"
)

// Manifest is the plugin.json at the root of an installed plugin.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CommandRunner runs argv inside dir.
type CommandRunner func(ctx context.Context, dir string, argv []string) error

// ExecRunner runs argv as a child process and reports its output on failure.
func ExecRunner(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Installer owns the plugins directory.
type Installer struct {
	dir        string
	installCmd []string
	run        CommandRunner
}

func NewInstaller(dir string, installCmd []string, run CommandRunner) *Installer {
	if run == nil {
		run = ExecRunner
	}
	return &Installer{dir: dir, installCmd: installCmd, run: run}
}

func (i *Installer) Dir() string {
	return i.dir
}

// Target is the install directory of name.
func (i *Installer) Target(name string) string {
	return filepath.Join(i.dir, name)
}

// LockPath is the file lock guarding name's directory.
func (i *Installer) LockPath(name string) string {
	return filepath.Join(i.dir, name+".lock")
}

// Installed reports whether a completed install of name exists.
func (i *Installer) Installed(name string) bool {
	_, err := os.Stat(filepath.Join(i.Target(name), markerFile))
	return err == nil
}

// State reads the install state of name against the registry version.
func (i *Installer) State(name, latest string) InstallState {
	if !i.Installed(name) {
		return InstallState{}
	}
	st := InstallState{Installed: true}
	m, err := i.Manifest(name)
	if err != nil {
		log.Debugw("failed to read plugin manifest", "plugin", name, "error", err)
		return st
	}
	st.CurrentVersion = m.Version
	st.HasUpdate = hasUpdate(true, m.Version, latest)
	return st
}

func (i *Installer) Manifest(name string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(i.Target(name), manifestFile))
	if err != nil {
		return m, err
	}
	err = sonic.Unmarshal(data, &m)
	return m, err
}

// Copy replaces the target of desc with the tree at src, skipping .git.
// A manifest is written from desc when the source has none.
func (i *Installer) Copy(src string, desc Descriptor) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("plugin source %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("plugin source %s is not a directory", src)
	}

	target := i.Target(desc.Name)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := copyDir(src, target); err != nil {
		return fmt.Errorf("copy plugin %s: %w", desc.Name, err)
	}
	// a stale marker from the source would mark a half install as done
	_ = os.Remove(filepath.Join(target, markerFile))

	manifest := filepath.Join(target, manifestFile)
	if _, err := os.Stat(manifest); errors.Is(err, fs.ErrNotExist) {
		data, err := sonic.ConfigStd.MarshalIndent(Manifest{Name: desc.Name, Version: desc.Version}, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(manifest, data, 0o644)
	}
	return nil
}

// InstallDeps runs the configured install command inside the target.
func (i *Installer) InstallDeps(ctx context.Context, name string) error {
	if len(i.installCmd) == 0 {
		return nil
	}
	return i.Run(ctx, name, i.installCmd)
}

// Run executes argv inside name's target. "{name}" in an argument is
// replaced by the plugin name.
func (i *Installer) Run(ctx context.Context, name string, argv []string) error {
	args := make([]string, len(argv))
	for n, a := range argv {
		args[n] = strings.ReplaceAll(a, "{name}", name)
	}
	return i.run(ctx, i.Target(name), args)
}

// MarkInstalled completes an install.
func (i *Installer) MarkInstalled(name string) error {
	return os.WriteFile(filepath.Join(i.Target(name), markerFile), nil, 0o644)
}

func (i *Installer) Remove(name string) error {
	return os.RemoveAll(i.Target(name))
}

// Backup moves the target aside. restore puts it back over whatever is at
// the target, discard deletes it.
func (i *Installer) Backup(name string) (restore func() error, discard func() error, err error) {
	target := i.Target(name)
	bak := target + ".bak-" + id.GetULID()
	if err := os.Rename(target, bak); err != nil {
		return nil, nil, fmt.Errorf("backup plugin %s: %w", name, err)
	}
	restore = func() error {
		if err := os.RemoveAll(target); err != nil {
			return err
		}
		return os.Rename(bak, target)
	}
	discard = func() error {
		return os.RemoveAll(bak)
	}
	return restore, discard, nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		out := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(out, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, out)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, out, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
