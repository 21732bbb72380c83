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
	"errors"

	"github.com/go-strange/strange/internal/bot"
	"github.com/go-strange/strange/internal/plugin"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/log"
	"github.com/gofiber/fiber/v2"
)

type Router struct {
	Http    httpx.Http
	Service *Service
	Host    *Host
}

func NewRouter(cfg httpx.Http, service *Service, host *Host) *Router {
	return &Router{Http: cfg, Service: service, Host: host}
}

// PluginBase is where the routes of dashboard plugins are served.
func PluginBase(cfg httpx.Http) string {
	return cfg.ContextPath + "/plugins"
}

func (rt *Router) Router() *fiber.App {
	app := httpx.NewApp(rt.Http, "strange-dashboard")

	api := app.Group(rt.Http.ContextPath)
	{
		rt.adminRouter(api)
		rt.guildRouter(api)

		// routes contributed by enabled plugins
		api.All("/plugins/:pluginName/*", rt.Host.Serve)
		api.All("/plugins/:pluginName", rt.Host.Serve)
	}
	return app
}

type updatePluginBody struct {
	PluginName string `json:"pluginName"`
	Action     string `json:"action"`
}

type guildPluginBody struct {
	Enable bool `json:"enable"`
}

func (rt *Router) adminRouter(r fiber.Router) {
	admin := r.Group("/admin")
	{
		admin.Get("/plugins", rt.listPlugins)
		admin.Put("/plugins", rt.updatePlugin)
		admin.Get("/commands", rt.commandsSummary)
		admin.Get("/commands/:pluginName", rt.pluginCommands)
		admin.Get("/locales", rt.botLocales)
		admin.Put("/locales", rt.updateBotLocales)
	}
}

func (rt *Router) guildRouter(r fiber.Router) {
	guilds := r.Group("/guilds")
	{
		guilds.Get("", rt.botGuilds)
		guilds.Get("/:guildId/stats", rt.validateGuild, rt.guildStats)
		guilds.Put("/:guildId/plugins/:pluginName", rt.validateGuild, rt.updateGuildPlugin)
	}
}

func (rt *Router) listPlugins(c *fiber.Ctx) error {
	plugins, err := rt.Service.Plugins(c.UserContext())
	if err != nil {
		log.Errorw("failed to list plugins", "error", err)
		return httpx.WithRepErr(c, httpx.Failed.Code, err.Error())
	}
	return httpx.WithRepJSON(c, plugins)
}

func (rt *Router) updatePlugin(c *fiber.Ctx) error {
	var body updatePluginBody
	if err := c.BodyParser(&body); err != nil {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, err.Error())
	}
	if body.PluginName == "" || body.Action == "" {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, "pluginName and action are required")
	}
	if err := rt.Service.UpdatePlugin(c.UserContext(), body.PluginName, body.Action); err != nil {
		log.Errorw("failed to update plugin", "plugin", body.PluginName, "action", body.Action, "error", err)
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) commandsSummary(c *fiber.Ctx) error {
	summary, err := rt.Service.CommandsSummary(c.UserContext())
	if err != nil {
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepJSON(c, summary)
}

func (rt *Router) pluginCommands(c *fiber.Ctx) error {
	cmds, err := rt.Service.PluginCommands(c.UserContext(), c.Params("pluginName"), bot.CommandType(c.Query("type")))
	if err != nil {
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepJSON(c, cmds)
}

func (rt *Router) botLocales(c *fiber.Ctx) error {
	bundles, err := rt.Service.BotLocales(c.UserContext())
	if err != nil {
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepJSON(c, bundles)
}

func (rt *Router) updateBotLocales(c *fiber.Ctx) error {
	var req bot.LocaleBundleRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, err.Error())
	}
	if req.Plugin == "" || req.Language == "" {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, "plugin and language are required")
	}
	if err := rt.Service.UpdateBotLocales(c.UserContext(), req); err != nil {
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) botGuilds(c *fiber.Ctx) error {
	return httpx.WithRepJSON(c, rt.Service.BotGuilds(c.UserContext()))
}

// validateGuild rejects tenants no shard serves.
func (rt *Router) validateGuild(c *fiber.Ctx) error {
	id := c.Params("guildId")
	if !rt.Service.ValidateGuild(c.UserContext(), id) {
		return httpx.WithRepErr(c, httpx.NotFound.Code, "guild "+id+" not found")
	}
	return c.Next()
}

func (rt *Router) guildStats(c *fiber.Ctx) error {
	stats := rt.Service.GuildStats(c.UserContext(), c.Params("guildId"))
	if stats == nil {
		return httpx.WithRepErr(c, httpx.NotFound.Code, "guild stats not available")
	}
	return httpx.WithRepJSON(c, stats)
}

func (rt *Router) updateGuildPlugin(c *fiber.Ctx) error {
	var body guildPluginBody
	if err := c.BodyParser(&body); err != nil {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, err.Error())
	}
	name, guild := c.Params("pluginName"), c.Params("guildId")
	if err := rt.Service.UpdateInTenant(c.UserContext(), name, guild, body.Enable); err != nil {
		log.Errorw("failed to update guild plugin", "plugin", name, "guild", guild, "error", err)
		return httpx.WithRepErr(c, errorCode(err), err.Error())
	}
	return httpx.WithRepNotDetail(c)
}

func errorCode(err error) int {
	var (
		shard   *ShardError
		missing *plugin.MissingDependencyError
		needed  *plugin.DependentsError
	)
	switch {
	case errors.As(err, &shard):
		return httpx.ShardFailed.Code
	case errors.Is(err, bot.ErrInvalidAction):
		return httpx.BadRequest.Code
	case errors.Is(err, plugin.ErrPluginNotFound), errors.Is(err, plugin.ErrNotInstalled):
		return httpx.NotFound.Code
	case errors.As(err, &missing), errors.As(err, &needed),
		errors.Is(err, plugin.ErrAlreadyEnabled), errors.Is(err, plugin.ErrPluginEnabled),
		errors.Is(err, plugin.ErrCoreRequired), errors.Is(err, plugin.ErrNotEnabled):
		return httpx.Conflict.Code
	default:
		return httpx.Failed.Code
	}
}
