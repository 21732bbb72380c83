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
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/bot"
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/retry"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	descs []plugin.Descriptor
}

func (s *stubSource) Fetch(context.Context) ([]plugin.Descriptor, error) {
	return slices.Clone(s.descs), nil
}

type dirSyncer struct {
	root string
}

func (s dirSyncer) Sync(_ context.Context, repo string) (string, error) {
	dir := filepath.Join(s.root, filepath.Base(repo))
	return dir, os.MkdirAll(dir, 0o755)
}

type routesPlugin struct {
	routes func(fiber.Router)
}

func (p routesPlugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{Routes: p.routes}
}

type call struct {
	event   string
	payload any
	one     bool
}

// fakeShards answers every broadcast with one reply per shard.
type fakeShards struct {
	mu     sync.Mutex
	calls  []call
	shards int
	reply  func(shard int, event string, payload any) ipc.Reply
}

func (f *fakeShards) Broadcast(_ context.Context, event string, payload any) []ipc.Reply {
	f.mu.Lock()
	f.calls = append(f.calls, call{event: event, payload: payload})
	f.mu.Unlock()
	out := make([]ipc.Reply, 0, f.shards)
	for i := 0; i < f.shards; i++ {
		out = append(out, f.reply(i, event, payload))
	}
	return out
}

func (f *fakeShards) BroadcastOne(_ context.Context, event string, payload any) ipc.Reply {
	f.mu.Lock()
	f.calls = append(f.calls, call{event: event, payload: payload, one: true})
	f.mu.Unlock()
	return f.reply(0, event, payload)
}

func (f *fakeShards) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if req, ok := c.payload.(bot.UpdatePluginRequest); ok {
			out = append(out, req.Action)
		}
	}
	return out
}

func okReply(int, string, any) ipc.Reply {
	return ipc.OK("1", nil)
}

type testDashboard struct {
	service *Service
	manager *plugin.Manager
	host    *Host
	shards  *fakeShards
	backend *store.Memory
}

// newTestDashboard registers a dashboard entry point for the plugins in
// routes. Every name in registry is installable.
func newTestDashboard(t *testing.T, registry []string, routes map[string]func(fiber.Router)) *testDashboard {
	t.Helper()
	source := &stubSource{}
	for _, name := range registry {
		source.descs = append(source.descs, plugin.Descriptor{
			Name:       name,
			Version:    "1.0.0",
			Repository: "https://example.com/" + name + ".git",
		})
	}
	factories := plugin.NewFactories()
	for name, r := range routes {
		factories.Register(name, plugin.KindDashboard, func() plugin.Instance { return routesPlugin{routes: r} })
	}

	backend := store.NewMemory()
	installer := plugin.NewInstaller(t.TempDir(), nil, nil)
	locker := plugin.NewLocker(2, retry.Fixed(time.Millisecond))
	host := NewHost(installer, nil, "/api/v1/plugins")
	manager := plugin.NewManager(plugin.KindDashboard, host, source, dirSyncer{root: t.TempDir()}, installer, locker, backend, backend, factories)
	shards := &fakeShards{shards: 3, reply: okReply}
	return &testDashboard{
		service: NewService(manager, shards),
		manager: manager,
		host:    host,
		shards:  shards,
		backend: backend,
	}
}

func (d *testDashboard) install(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, d.manager.Install(context.Background(), name, plugin.InstallOptions{SkipVerify: true}))
	}
}

func helloRoutes(r fiber.Router) {
	r.Get("/hello", func(c *fiber.Ctx) error {
		return c.SendString("hello")
	})
}

func TestService_EnableBroadcasts(t *testing.T) {
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")

	require.NoError(t, d.service.UpdatePlugin(context.Background(), "music", bot.ActionEnable))
	assert.True(t, d.manager.IsEnabled("music"))
	assert.Equal(t, []string{bot.ActionEnable}, d.shards.actions())
	assert.Equal(t, ipc.Event(ipc.ControlNamespace, bot.VerbUpdatePlugin), d.shards.calls[0].event)
}

func TestService_EnableCompensatesShardFailure(t *testing.T) {
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")
	d.shards.reply = func(shard int, _ string, payload any) ipc.Reply {
		if shard == 1 && payload.(bot.UpdatePluginRequest).Action == bot.ActionEnable {
			return ipc.Fail("1", "missing dependencies for music: stats, install and enable them first")
		}
		return ipc.OK("1", nil)
	}

	err := d.service.UpdatePlugin(context.Background(), "music", bot.ActionEnable)
	var shardErr *ShardError
	require.ErrorAs(t, err, &shardErr)
	assert.Equal(t, bot.ActionEnable, shardErr.Action)
	assert.Contains(t, err.Error(), "missing dependencies for music")
	assert.Equal(t, httpx.ShardFailed.Code, errorCode(err))

	assert.False(t, d.manager.IsEnabled("music"))
	assert.Equal(t, []string{bot.ActionEnable, bot.ActionDisable}, d.shards.actions())
}

func (d *testDashboard) enabledList(t *testing.T) []string {
	t.Helper()
	cfg, err := d.backend.LoadConfig(context.Background(), plugin.CoreName)
	require.NoError(t, err)
	return cfg.EnabledPlugins()
}

func TestService_EnableWithoutDashboardEntry(t *testing.T) {
	d := newTestDashboard(t, []string{"stats"}, nil)
	d.install(t, "stats")

	require.NoError(t, d.service.UpdatePlugin(context.Background(), "stats", bot.ActionEnable))
	assert.False(t, d.manager.IsEnabled("stats"))
	assert.True(t, d.manager.GloballyEnabled(context.Background(), "stats"))
	assert.Equal(t, []string{"stats"}, d.enabledList(t))
	assert.Equal(t, []string{bot.ActionEnable}, d.shards.actions())
}

func TestService_WithoutDashboardEntryCompensates(t *testing.T) {
	ctx := context.Background()
	d := newTestDashboard(t, []string{"stats"}, nil)
	d.install(t, "stats")
	d.shards.reply = func(shard int, _ string, payload any) ipc.Reply {
		if shard == 1 && payload.(bot.UpdatePluginRequest).Action == bot.ActionEnable {
			return ipc.Fail("1", "request timed out")
		}
		return ipc.OK("1", nil)
	}

	require.Error(t, d.service.UpdatePlugin(ctx, "stats", bot.ActionEnable))
	assert.Empty(t, d.enabledList(t))
	assert.Equal(t, []string{bot.ActionEnable, bot.ActionDisable}, d.shards.actions())

	d.shards.reply = okReply
	require.NoError(t, d.service.UpdatePlugin(ctx, "stats", bot.ActionEnable))
	d.shards.reply = func(shard int, _ string, payload any) ipc.Reply {
		if shard == 0 && payload.(bot.UpdatePluginRequest).Action == bot.ActionDisable {
			return ipc.Fail("1", "cannot disable stats, it is required by: leaderboard")
		}
		return ipc.OK("1", nil)
	}
	require.Error(t, d.service.UpdatePlugin(ctx, "stats", bot.ActionDisable))
	assert.Equal(t, []string{"stats"}, d.enabledList(t))
}

func TestService_DisableCompensatesShardFailure(t *testing.T) {
	ctx := context.Background()
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")
	require.NoError(t, d.manager.Enable(ctx, "music"))
	d.shards.reply = func(shard int, _ string, payload any) ipc.Reply {
		if shard == 2 && payload.(bot.UpdatePluginRequest).Action == bot.ActionDisable {
			return ipc.Fail("1", "cannot disable music, it is required by: playlists")
		}
		return ipc.OK("1", nil)
	}

	err := d.service.UpdatePlugin(ctx, "music", bot.ActionDisable)
	require.Error(t, err)
	assert.True(t, d.manager.IsEnabled("music"))
	assert.Equal(t, []string{bot.ActionDisable, bot.ActionEnable}, d.shards.actions())
}

func TestService_InstallAsksOneShardFirst(t *testing.T) {
	d := newTestDashboard(t, []string{"music"}, nil)
	d.shards.reply = func(int, string, any) ipc.Reply {
		return ipc.Fail("1", "plugin music not found in registry")
	}

	err := d.service.UpdatePlugin(context.Background(), "music", bot.ActionInstall)
	require.Error(t, err)
	assert.False(t, d.manager.Installer().Installed("music"))
	require.Len(t, d.shards.calls, 1)
	assert.True(t, d.shards.calls[0].one)

	d.shards.reply = okReply
	require.NoError(t, d.service.UpdatePlugin(context.Background(), "music", bot.ActionInstall))
	assert.True(t, d.manager.Installer().Installed("music"))

	require.NoError(t, d.service.UpdatePlugin(context.Background(), "music", bot.ActionUninstall))
	assert.False(t, d.manager.Installer().Installed("music"))
	assert.Equal(t, []string{bot.ActionInstall, bot.ActionInstall, bot.ActionUninstall}, d.shards.actions())
}

func TestService_InvalidAction(t *testing.T) {
	d := newTestDashboard(t, nil, nil)
	err := d.service.UpdatePlugin(context.Background(), "music", "restart")
	assert.ErrorIs(t, err, bot.ErrInvalidAction)
	assert.Equal(t, httpx.BadRequest.Code, errorCode(err))
	assert.Empty(t, d.shards.calls)
}

func TestService_UpdateInTenant(t *testing.T) {
	ctx := context.Background()
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")
	require.NoError(t, d.manager.Enable(ctx, "music"))

	require.NoError(t, d.service.UpdateInTenant(ctx, "music", "g1", true))
	s, err := d.backend.LoadSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"music"}, s.EnabledPlugins)

	d.shards.reply = func(shard int, _ string, payload any) ipc.Reply {
		if shard == 0 && payload.(bot.UpdatePluginRequest).Action == bot.ActionGuildDisable {
			return ipc.Fail("1", "boom")
		}
		return ipc.OK("1", nil)
	}
	require.Error(t, d.service.UpdateInTenant(ctx, "music", "g1", false))
	s, err = d.backend.LoadSettings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"music"}, s.EnabledPlugins)
	assert.Equal(t, []string{bot.ActionGuildEnable, bot.ActionGuildDisable, bot.ActionGuildEnable}, d.shards.actions())
}

func TestService_Queries(t *testing.T) {
	ctx := context.Background()
	d := newTestDashboard(t, nil, nil)
	d.shards.reply = func(shard int, event string, payload any) ipc.Reply {
		_, verb, _ := ipc.SplitEvent(event)
		switch verb {
		case bot.VerbGetBotGuilds:
			return ipc.OK("1", [][]string{{"g1", "g2"}, {"g3"}, {"g2"}}[shard])
		case bot.VerbValidateGuild:
			return ipc.OK("1", shard == 2 && payload == "g3")
		case bot.VerbGetGuildStats:
			if shard == 1 {
				return ipc.OK("1", bot.TenantStats{Roles: 4, Members: 12})
			}
			return ipc.OK("1", nil)
		default:
			return ipc.Fail("1", "Handler not found")
		}
	}

	assert.Equal(t, []string{"g1", "g2", "g3"}, d.service.BotGuilds(ctx))
	assert.True(t, d.service.ValidateGuild(ctx, "g3"))
	assert.False(t, d.service.ValidateGuild(ctx, "g9"))
	assert.Equal(t, &bot.TenantStats{Roles: 4, Members: 12}, d.service.GuildStats(ctx, "g1"))

	_, err := d.service.CommandsSummary(ctx)
	assert.EqualError(t, err, "failed to query plugin bot on other instances: Handler not found")
}

func TestService_UpdateBotLocales(t *testing.T) {
	d := newTestDashboard(t, nil, nil)
	assert.EqualError(t, d.service.UpdateBotLocales(context.Background(), bot.LocaleBundleRequest{Plugin: "core"}),
		"plugin and language are required")
	assert.Empty(t, d.shards.calls)

	req := bot.LocaleBundleRequest{Plugin: "core", Language: "en-US", Keys: map[string]string{"PING": "Pong"}}
	require.NoError(t, d.service.UpdateBotLocales(context.Background(), req))
	require.Len(t, d.shards.calls, 1)
	assert.Equal(t, req, d.shards.calls[0].payload)
}

func TestHost_MountsPluginRoutes(t *testing.T) {
	ctx := context.Background()
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")
	rt := NewRouter(httpx.Http{ContextPath: "/api/v1"}, d.service, d.host)
	app := rt.Router()

	get := func(path string) string {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Contains(t, get("/api/v1/plugins/music/hello"), "plugin music has no routes")

	require.NoError(t, d.manager.Enable(ctx, "music"))
	assert.Equal(t, "hello", get("/api/v1/plugins/music/hello"))

	require.NoError(t, d.manager.Disable(ctx, "music"))
	assert.Contains(t, get("/api/v1/plugins/music/hello"), "plugin music has no routes")
}

func TestRouter_UpdatePlugin(t *testing.T) {
	d := newTestDashboard(t, []string{"music"}, map[string]func(fiber.Router){"music": helloRoutes})
	d.install(t, "music")
	app := NewRouter(httpx.Http{ContextPath: "/api/v1"}, d.service, d.host).Router()

	put := func(body string) httpx.Response {
		req := httptest.NewRequest(fiber.MethodPut, "/api/v1/admin/plugins", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		var out httpx.Response
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, sonic.Unmarshal(raw, &out))
		return out
	}

	assert.Equal(t, httpx.BadRequest.Code, put(`{"pluginName":"music"}`).Code)
	assert.Equal(t, httpx.BadRequest.Code, put(`{"pluginName":"music","action":"restart"}`).Code)
	assert.Equal(t, httpx.Success.Code, put(`{"pluginName":"music","action":"enable"}`).Code)
	assert.True(t, d.manager.IsEnabled("music"))
	assert.Equal(t, httpx.Conflict.Code, put(`{"pluginName":"music","action":"uninstall"}`).Code)
}

func TestRouter_GuildValidation(t *testing.T) {
	d := newTestDashboard(t, nil, nil)
	d.shards.reply = func(shard int, event string, payload any) ipc.Reply {
		_, verb, _ := ipc.SplitEvent(event)
		if verb == bot.VerbValidateGuild {
			return ipc.OK("1", payload == "g1")
		}
		return ipc.OK("1", bot.TenantStats{Members: 3})
	}
	app := NewRouter(httpx.Http{ContextPath: "/api/v1"}, d.service, d.host).Router()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/guilds/g9/stats", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "guild g9 not found")

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/guilds/g1/stats", nil))
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"members":3`)
}
