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
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/go-strange/strange/internal/store"
	"github.com/go-strange/strange/pkg/id"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/safe"
	"go.uber.org/zap"
)

// Host is the embedding process. Attach registers a plugin's capabilities,
// Detach removes them.
type Host interface {
	PostInstall(ctx context.Context, desc Descriptor, target string) error
	PreUninstall(ctx context.Context, name string) error
	Attach(ctx context.Context, p *Plugin) error
	Detach(ctx context.Context, p *Plugin) error
	TenantChanged(ctx context.Context, name, tenant string, enabled bool) error
}

// NopHost implements Host with no side effects.
type NopHost struct{}

func (NopHost) PostInstall(context.Context, Descriptor, string) error { return nil }
func (NopHost) PreUninstall(context.Context, string) error { return nil }
func (NopHost) Attach(context.Context, *Plugin) error { return nil }
func (NopHost) Detach(context.Context, *Plugin) error { return nil }
func (NopHost) TenantChanged(context.Context, string, string, bool) error { return nil }

type InstallOptions struct {
	// SkipVerify installs without checking the registry dependencies are live.
	SkipVerify bool
}

// Manager owns the plugins of one process.
type Manager struct {
	kind      Kind
	host      Host
	source    Source
	repos     Syncer
	installer *Installer
	locker    *Locker
	configs   store.ConfigStore
	settings  store.SettingsStore
	factories *Factories

	// lifecycle serializes enable, disable and tenant changes
	lifecycle sync.Mutex

	mu    sync.RWMutex
	live  map[string]*Plugin
	order []string
}

func NewManager(
	kind Kind,
	host Host,
	source Source,
	repos Syncer,
	installer *Installer,
	locker *Locker,
	configs store.ConfigStore,
	settings store.SettingsStore,
	factories *Factories,
) *Manager {
	if host == nil {
		host = NopHost{}
	}
	if factories == nil {
		factories = DefaultFactories()
	}
	return &Manager{
		kind:      kind,
		host:      host,
		source:    source,
		repos:     repos,
		installer: installer,
		locker:    locker,
		configs:   configs,
		settings:  settings,
		factories: factories,
		live:      make(map[string]*Plugin),
	}
}

// SetHost replaces the host. Call before Init.
func (m *Manager) SetHost(h Host) {
	m.host = h
}

func (m *Manager) Kind() Kind {
	return m.kind
}

func (m *Manager) Installer() *Installer {
	return m.installer
}

func (m *Manager) Settings() store.SettingsStore {
	return m.settings
}

// Get returns the live plugin named name.
func (m *Manager) Get(name string) (*Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.live[name]
	return p, ok
}

func (m *Manager) IsEnabled(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// GloballyEnabled reports whether name is live here or listed in
// ENABLED_PLUGINS.
func (m *Manager) GloballyEnabled(ctx context.Context, name string) bool {
	if m.IsEnabled(name) {
		return true
	}
	enabled, err := m.enabledNames(ctx)
	return err == nil && slices.Contains(enabled, name)
}

// Plugins returns the live plugins in enable order.
func (m *Manager) Plugins() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Plugin, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.live[name])
	}
	return out
}

// Names returns the live plugin names in enable order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Dependents lists the live plugins that directly depend on name.
func (m *Manager) Dependents(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, n := range m.order {
		if slices.Contains(m.live[n].Dependencies, name) {
			out = append(out, n)
		}
	}
	return out
}

// Registry reads the registry.
func (m *Manager) Registry(ctx context.Context) ([]Descriptor, error) {
	return m.source.Fetch(ctx)
}

// PluginsMeta joins the registry with the disk and the live map. It is
// computed on every call.
func (m *Manager) PluginsMeta(ctx context.Context) ([]Meta, error) {
	descs, err := m.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]Meta, 0, len(descs))
	for _, d := range descs {
		metas = append(metas, Meta{
			Descriptor:   d,
			InstallState: m.installer.State(d.Name, d.Version),
			Enabled:      m.IsEnabled(d.Name),
		})
	}
	return metas, nil
}

func (m *Manager) descriptor(ctx context.Context, name string) (Descriptor, error) {
	descs, err := m.source.Fetch(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	d, ok := Find(descs, name)
	if !ok {
		return Descriptor{}, newError(ErrPluginNotFound, "plugin %s not found in registry", name)
	}
	return d, nil
}

// Install fetches and installs name. The registry is read after the plugin
// lock is held. A failed fresh install leaves no target directory.
func (m *Manager) Install(ctx context.Context, name string, opts InstallOptions) (err error) {
	start := time.Now()
	logger := log.With("op", id.GetULID(), "action", "install", "plugin", name)
	defer func() { metrics.RecordLifecycle("install", name, err) }()

	unlock, err := m.locker.Lock(ctx, m.installer.LockPath(name))
	if err != nil {
		return err
	}
	defer unlock()

	if err = m.install(ctx, logger, name, opts); err != nil {
		logger.Errorw("install failed", "error", err)
		return err
	}
	metrics.RecordInstall(name, time.Since(start))
	logger.Infow("plugin installed", "duration", time.Since(start))
	return nil
}

func (m *Manager) install(ctx context.Context, logger *zap.SugaredLogger, name string, opts InstallOptions) error {
	desc, err := m.descriptor(ctx, name)
	if err != nil {
		return err
	}
	if !opts.SkipVerify {
		enabled, err := m.enabledNames(ctx)
		if err != nil {
			return err
		}
		if missing := missingDeps(desc, m.satisfied(enabled)); len(missing) > 0 {
			return &MissingDependencyError{Plugin: name, Missing: missing}
		}
	}

	target := m.installer.Target(name)
	fresh := !m.installer.Installed(name)
	if fresh {
		if err := m.installer.Remove(name); err != nil {
			return fmt.Errorf("remove stale %s: %w", target, err)
		}
		if err := m.fetchInto(ctx, desc); err != nil {
			m.discard(logger, name)
			return err
		}
	} else {
		logger.Warnw("plugin already installed, running post-install only")
	}

	if err := m.host.PostInstall(ctx, desc, target); err != nil {
		if fresh {
			m.discard(logger, name)
		}
		return fmt.Errorf("post-install %s: %w", name, err)
	}
	if fresh {
		if err := m.installer.MarkInstalled(name); err != nil {
			m.discard(logger, name)
			return err
		}
	}
	return nil
}

func (m *Manager) fetchInto(ctx context.Context, desc Descriptor) error {
	src, err := m.repos.Sync(ctx, desc.Repository)
	if err != nil {
		return err
	}
	if err := m.installer.Copy(filepath.Join(src, desc.RepositoryPath), desc); err != nil {
		return err
	}
	if err := m.installer.InstallDeps(ctx, desc.Name); err != nil {
		return fmt.Errorf("install dependencies of %s: %w", desc.Name, err)
	}
	return nil
}

func (m *Manager) discard(logger *zap.SugaredLogger, name string) {
	if err := m.installer.Remove(name); err != nil {
		logger.Errorw("failed to remove partial install", "error", err)
	}
}

// Update reinstalls a disabled plugin whose registry version is newer. The
// previous install is restored when the new one fails.
func (m *Manager) Update(ctx context.Context, name string) (err error) {
	start := time.Now()
	logger := log.With("op", id.GetULID(), "action", "update", "plugin", name)
	defer func() { metrics.RecordLifecycle("update", name, err) }()

	unlock, err := m.locker.Lock(ctx, m.installer.LockPath(name))
	if err != nil {
		return err
	}
	defer unlock()

	if m.IsEnabled(name) {
		return newError(ErrPluginEnabled, "cannot update enabled plugin %s, disable it first", name)
	}
	desc, err := m.descriptor(ctx, name)
	if err != nil {
		return err
	}
	st := m.installer.State(name, desc.Version)
	if !st.Installed {
		return newError(ErrNotInstalled, "plugin %s is not installed", name)
	}
	if !st.HasUpdate {
		logger.Infow("plugin is up to date", "version", st.CurrentVersion)
		return nil
	}

	restore, drop, err := m.installer.Backup(name)
	if err != nil {
		return err
	}
	if err = m.install(ctx, logger, name, InstallOptions{}); err != nil {
		if rerr := restore(); rerr != nil {
			logger.Errorw("failed to restore previous install", "error", rerr)
		}
		return err
	}
	if derr := drop(); derr != nil {
		logger.Warnw("failed to remove backup", "error", derr)
	}
	metrics.RecordInstall(name, time.Since(start))
	logger.Infow("plugin updated", "from", st.CurrentVersion, "to", desc.Version)
	return nil
}

// Enable builds the instance and publishes it. Steps done before a failure
// are undone in reverse order. A plugin without an entry point for this
// process is only added to ENABLED_PLUGINS and ErrNoEntryPoint is returned.
func (m *Manager) Enable(ctx context.Context, name string) (err error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	defer func() { metrics.RecordLifecycle("enable", name, err) }()

	unlock, err := m.locker.Lock(ctx, m.installer.LockPath(name))
	if err != nil {
		return err
	}
	defer unlock()
	return m.enable(ctx, name)
}

func (m *Manager) enable(ctx context.Context, name string) error {
	logger := log.With("action", "enable", "plugin", name, "kind", m.kind.String())
	if m.IsEnabled(name) {
		return newError(ErrAlreadyEnabled, "plugin %s is already enabled", name)
	}
	desc, err := m.descriptor(ctx, name)
	if err != nil {
		return err
	}
	if !m.installer.Installed(name) {
		return newError(ErrNotInstalled, "plugin %s is not installed", name)
	}
	enabled, err := m.enabledNames(ctx)
	if err != nil {
		return err
	}
	if missing := missingDeps(desc, m.satisfied(enabled)); len(missing) > 0 {
		return &MissingDependencyError{Plugin: name, Missing: missing}
	}
	factory, ok := m.factories.Lookup(name, m.kind)
	if !ok {
		if name != CoreName {
			if err := m.editEnabledList(ctx, addName(name)); err != nil {
				return fmt.Errorf("persist enabled plugins: %w", err)
			}
		}
		logger.Debugw("plugin has no entry point in this process, skipping")
		return newError(ErrNoEntryPoint, "plugin %s has no %s entry point", name, m.kind)
	}

	version := desc.Version
	if mf, err := m.installer.Manifest(name); err == nil && mf.Version != "" {
		version = mf.Version
	}

	var inst Instance
	if err := safe.Try(func() error {
		inst = factory()
		return nil
	}); err != nil {
		return fmt.Errorf("build plugin %s: %w", name, err)
	}
	if inst == nil {
		return fmt.Errorf("build plugin %s: factory returned nil", name)
	}
	p := &Plugin{
		Name:         name,
		Version:      version,
		Kind:         m.kind,
		Dependencies: slices.Clone(desc.Dependencies),
		Instance:     inst,
		Capabilities: inst.Capabilities(),
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	if e, ok := inst.(Enabler); ok {
		svc := Services{Config: m.configs, Settings: m.settings, Logger: log.With("plugin", name)}
		if err := safe.Try(func() error { return e.OnEnable(ctx, svc) }); err != nil {
			return fmt.Errorf("enable %s: %w", name, err)
		}
	}
	undo = append(undo, func() {
		if err := callDisable(ctx, p); err != nil {
			logger.Warnw("rollback: disable hook failed", "error", err)
		}
	})

	if err := m.host.Attach(ctx, p); err != nil {
		rollback()
		return fmt.Errorf("attach %s: %w", name, err)
	}
	undo = append(undo, func() {
		if err := m.host.Detach(ctx, p); err != nil {
			logger.Warnw("rollback: detach failed", "error", err)
		}
	})

	if name != CoreName {
		if err := m.editEnabledList(ctx, addName(name)); err != nil {
			rollback()
			return fmt.Errorf("persist enabled plugins: %w", err)
		}
	}

	m.mu.Lock()
	m.live[name] = p
	m.order = append(m.order, name)
	n := len(m.live)
	m.mu.Unlock()

	metrics.PluginsEnabled.Set(float64(n))
	logger.Infow("plugin enabled", "version", version)
	return nil
}

// Disable removes name from this process. It is a no-op for a plugin that
// is not enabled and fails while enabled plugins depend on it, including
// plugins that only run in the other process.
func (m *Manager) Disable(ctx context.Context, name string) (err error) {
	if name == CoreName {
		return newError(ErrCoreRequired, "cannot disable core plugin")
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	defer func() { metrics.RecordLifecycle("disable", name, err) }()

	unlock, err := m.locker.Lock(ctx, m.installer.LockPath(name))
	if err != nil {
		return err
	}
	defer unlock()

	logger := log.With("action", "disable", "plugin", name, "kind", m.kind.String())
	enabled, err := m.enabledNames(ctx)
	if err != nil {
		return err
	}
	p, ok := m.Get(name)
	if !ok && !m.remote(name, enabled) {
		logger.Debugw("plugin is not enabled")
		return nil
	}
	if deps := m.dependents(ctx, name, enabled); len(deps) > 0 {
		return &DependentsError{Plugin: name, Dependents: deps}
	}

	if err := m.editEnabledList(ctx, removeName(name)); err != nil {
		return fmt.Errorf("persist enabled plugins: %w", err)
	}
	if !ok {
		logger.Infow("plugin disabled, no entry point in this process")
		return nil
	}
	restore := func() {
		if err := m.editEnabledList(ctx, addName(name)); err != nil {
			logger.Errorw("rollback: failed to restore enabled plugins", "error", err)
		}
	}

	if err := m.host.Detach(ctx, p); err != nil {
		restore()
		return fmt.Errorf("detach %s: %w", name, err)
	}
	if err := callDisable(ctx, p); err != nil {
		if aerr := m.host.Attach(ctx, p); aerr != nil {
			logger.Errorw("rollback: attach failed", "error", aerr)
		}
		restore()
		return fmt.Errorf("disable %s: %w", name, err)
	}

	m.remove(name)
	logger.Infow("plugin disabled")
	return nil
}

func (m *Manager) remove(name string) {
	m.mu.Lock()
	delete(m.live, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	n := len(m.live)
	m.mu.Unlock()
	metrics.PluginsEnabled.Set(float64(n))
}

// Uninstall deletes the files of a disabled plugin.
func (m *Manager) Uninstall(ctx context.Context, name string) (err error) {
	defer func() { metrics.RecordLifecycle("uninstall", name, err) }()

	lockPath := m.installer.LockPath(name)
	unlock, err := m.locker.Lock(ctx, lockPath)
	if err != nil {
		return err
	}
	defer unlock()

	if m.IsEnabled(name) {
		return newError(ErrPluginEnabled, "cannot uninstall enabled plugin %s, disable it first", name)
	}
	if err := m.host.PreUninstall(ctx, name); err != nil {
		return fmt.Errorf("pre-uninstall %s: %w", name, err)
	}
	if err := m.installer.Remove(name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	// removed while held, a queued locker then opens a fresh file
	if rmErr := os.Remove(lockPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		log.Warnw("failed to remove lock file", "plugin", name, "error", rmErr)
	}
	log.Infow("plugin uninstalled", "plugin", name)
	return nil
}

// Shutdown runs the disable hooks in reverse enable order without touching
// the persisted state.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	var errs []error
	names := m.Names()
	for i := len(names) - 1; i >= 0; i-- {
		p, _ := m.Get(names[i])
		if err := m.host.Detach(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("detach %s: %w", p.Name, err))
		}
		if err := callDisable(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", p.Name, err))
		}
		m.remove(p.Name)
	}
	return errors.Join(errs...)
}

// Init brings the process to the persisted state: core first, then every
// plugin in ENABLED_PLUGINS whose dependencies can be met, in dependency
// order. Failures of single plugins are logged and skipped.
func (m *Manager) Init(ctx context.Context) error {
	descs, err := m.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	if _, ok := Find(descs, CoreName); !ok {
		return newError(ErrPluginNotFound, "core plugin not found in registry")
	}
	if !m.installer.Installed(CoreName) {
		if err := m.Install(ctx, CoreName, InstallOptions{SkipVerify: true}); err != nil {
			return fmt.Errorf("install core: %w", err)
		}
	}
	if !m.IsEnabled(CoreName) {
		if err := m.Enable(ctx, CoreName); err != nil {
			return fmt.Errorf("enable core: %w", err)
		}
	}

	cfg, err := m.configs.LoadConfig(ctx, CoreName)
	if err != nil {
		return fmt.Errorf("load core config: %w", err)
	}
	wanted := cfg.EnabledPlugins()
	candidates, stripped := startupCandidates(descs, wanted)
	if len(stripped) > 0 {
		if err := m.editEnabledList(ctx, func(names []string) []string {
			return slices.DeleteFunc(names, func(n string) bool { return slices.Contains(stripped, n) })
		}); err != nil {
			log.Warnw("failed to persist stripped plugins", "plugins", stripped, "error", err)
		}
	}

	order, err := Resolve(candidates)
	if err != nil {
		return err
	}
	for _, name := range order {
		if !m.installer.Installed(name) {
			if err := m.Install(ctx, name, InstallOptions{SkipVerify: true}); err != nil {
				log.Errorw("failed to install plugin, skipping", "plugin", name, "error", err)
				continue
			}
		}
		if err := m.Enable(ctx, name); err != nil && !errors.Is(err, ErrAlreadyEnabled) && !errors.Is(err, ErrNoEntryPoint) {
			log.Errorw("failed to enable plugin", "plugin", name, "error", err)
		}
	}
	log.Infow("plugins initialized", "kind", m.kind.String(), "enabled", m.Names())
	return nil
}

// startupCandidates picks, in registry order, the plugins of wanted that can
// start. Dependencies missing from the registry exclude a plugin; non-core
// dependencies outside the candidate set exclude and strip it.
func startupCandidates(descs []Descriptor, wanted []string) ([]Descriptor, []string) {
	inRegistry := make(map[string]bool, len(descs))
	for _, d := range descs {
		inRegistry[d.Name] = true
	}

	var candidates []Descriptor
	for _, d := range descs {
		if d.Name == CoreName || !slices.Contains(wanted, d.Name) {
			continue
		}
		if missing := missingDeps(d, func(dep string) bool { return inRegistry[dep] }); len(missing) > 0 {
			log.Warnw("plugin dependencies not in registry, skipping", "plugin", d.Name, "missing", missing)
			continue
		}
		candidates = append(candidates, d)
	}

	var stripped []string
	for changed := true; changed; {
		changed = false
		set := make(map[string]bool, len(candidates))
		for _, d := range candidates {
			set[d.Name] = true
		}
		kept := make([]Descriptor, 0, len(candidates))
		for _, d := range candidates {
			missing := missingDeps(d, func(dep string) bool { return dep == CoreName || set[dep] })
			if len(missing) > 0 {
				log.Warnw("plugin dependencies not enabled, removing from enabled plugins", "plugin", d.Name, "missing", missing)
				stripped = append(stripped, d.Name)
				changed = true
				continue
			}
			kept = append(kept, d)
		}
		candidates = kept
	}
	return candidates, stripped
}

// enabledNames reads ENABLED_PLUGINS.
func (m *Manager) enabledNames(ctx context.Context) ([]string, error) {
	cfg, err := m.configs.LoadConfig(ctx, CoreName)
	if err != nil {
		return nil, fmt.Errorf("load core config: %w", err)
	}
	return cfg.EnabledPlugins(), nil
}

// remote reports whether name is globally enabled but has no entry point in
// this process, so it is never live here.
func (m *Manager) remote(name string, enabled []string) bool {
	if name == CoreName {
		return false
	}
	if _, ok := m.factories.Lookup(name, m.kind); ok {
		return false
	}
	return slices.Contains(enabled, name)
}

// satisfied accepts live plugins and remote ones.
func (m *Manager) satisfied(enabled []string) func(string) bool {
	return func(dep string) bool {
		return m.IsEnabled(dep) || m.remote(dep, enabled)
	}
}

// dependents lists the live dependents of name followed by the remote ones.
// Remote dependents are read from the registry; a failed read keeps the live
// list only.
func (m *Manager) dependents(ctx context.Context, name string, enabled []string) []string {
	out := m.Dependents(name)
	descs, err := m.source.Fetch(ctx)
	if err != nil {
		log.Warnw("failed to read registry for dependents", "plugin", name, "error", err)
		return out
	}
	for _, n := range enabled {
		if !m.remote(n, enabled) || slices.Contains(out, n) {
			continue
		}
		if d, ok := Find(descs, n); ok && slices.Contains(d.Dependencies, name) {
			out = append(out, n)
		}
	}
	return out
}

func (m *Manager) editEnabledList(ctx context.Context, edit func([]string) []string) error {
	cfg, err := m.configs.LoadConfig(ctx, CoreName)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = store.ConfigData{}
	}
	before := cfg.EnabledPlugins()
	after := edit(slices.Clone(before))
	if slices.Equal(before, after) {
		return nil
	}
	cfg.SetEnabledPlugins(after)
	return m.configs.SaveConfig(ctx, CoreName, cfg)
}

func addName(name string) func([]string) []string {
	return func(names []string) []string {
		if slices.Contains(names, name) {
			return names
		}
		return append(names, name)
	}
}

func removeName(name string) func([]string) []string {
	return func(names []string) []string {
		return slices.DeleteFunc(names, func(n string) bool { return n == name })
	}
}

func callDisable(ctx context.Context, p *Plugin) error {
	d, ok := p.Instance.(Disabler)
	if !ok {
		return nil
	}
	return safe.Try(func() error { return d.OnDisable(ctx) })
}
