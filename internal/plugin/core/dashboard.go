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
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/gofiber/fiber/v2"
)

// Dashboard is the dashboard entry point. Its routes read and write the
// config blobs and tenant settings.
type Dashboard struct {
	service
}

func (d *Dashboard) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{Routes: d.routes}
}

func (d *Dashboard) routes(r fiber.Router) {
	r.Get("/config/:plugin", d.getConfig)
	r.Put("/config/:plugin", d.putConfig)
	r.Get("/settings/:guildId", d.getSettings)
	r.Put("/settings/:guildId/commands", d.putCommands)
}

func (d *Dashboard) getConfig(c *fiber.Ctx) error {
	cfg, err := d.Config(c.UserContext(), c.Params("plugin"))
	if err != nil {
		return httpx.WithRepErr(c, httpx.Failed.Code, err.Error())
	}
	return httpx.WithRepJSON(c, cfg)
}

func (d *Dashboard) putConfig(c *fiber.Ctx) error {
	var body store.ConfigData
	if err := c.BodyParser(&body); err != nil {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, err.Error())
	}
	if err := d.SaveConfig(c.UserContext(), c.Params("plugin"), body); err != nil {
		return httpx.WithRepErr(c, httpx.Failed.Code, err.Error())
	}
	return httpx.WithRepNotDetail(c)
}

func (d *Dashboard) getSettings(c *fiber.Ctx) error {
	s, err := d.Settings(c.UserContext(), c.Params("guildId"))
	if err != nil {
		return httpx.WithRepErr(c, httpx.Failed.Code, err.Error())
	}
	return httpx.WithRepJSON(c, s)
}

func (d *Dashboard) putCommands(c *fiber.Ctx) error {
	var body struct {
		DisabledCommands []string `json:"disabled_commands"`
	}
	if err := c.BodyParser(&body); err != nil {
		return httpx.WithRepErr(c, httpx.BadRequest.Code, err.Error())
	}
	if err := d.SetDisabledCommands(c.UserContext(), c.Params("guildId"), body.DisabledCommands); err != nil {
		return httpx.WithRepErr(c, httpx.Failed.Code, err.Error())
	}
	return httpx.WithRepNotDetail(c)
}
