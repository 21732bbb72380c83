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
	"strings"
	"sync"

	"github.com/go-strange/strange/internal/plugin"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// Host is the plugin.Host of the dashboard. It builds plugin assets after
// install and serves the routes of enabled plugins under base.
type Host struct {
	installer   *plugin.Installer
	postInstall []string
	base        string

	mu   sync.RWMutex
	apps map[string]*fiber.App
}

// NewHost serves plugin routes under base, e.g. "/api/v1/plugins".
func NewHost(installer *plugin.Installer, postInstall []string, base string) *Host {
	return &Host{
		installer:   installer,
		postInstall: postInstall,
		base:        strings.TrimRight(base, "/"),
		apps:        make(map[string]*fiber.App),
	}
}

// PostInstall runs the asset build command inside the plugin directory.
func (h *Host) PostInstall(ctx context.Context, desc plugin.Descriptor, target string) error {
	if len(h.postInstall) == 0 {
		return nil
	}
	log.Infow("building plugin assets", "plugin", desc.Name, "dir", target)
	return h.installer.Run(ctx, desc.Name, h.postInstall)
}

func (h *Host) PreUninstall(context.Context, string) error {
	return nil
}

// Attach mounts the plugin routes on a dedicated app so Detach can drop
// them again.
func (h *Host) Attach(_ context.Context, p *plugin.Plugin) error {
	if p.Capabilities.Routes == nil {
		return nil
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	p.Capabilities.Routes(app.Group(h.Base(p.Name)))

	h.mu.Lock()
	h.apps[p.Name] = app
	h.mu.Unlock()
	log.Debugw("plugin routes mounted", "plugin", p.Name, "base", h.Base(p.Name))
	return nil
}

func (h *Host) Detach(_ context.Context, p *plugin.Plugin) error {
	h.mu.Lock()
	delete(h.apps, p.Name)
	h.mu.Unlock()
	return nil
}

func (h *Host) TenantChanged(context.Context, string, string, bool) error {
	return nil
}

// Base is the path prefix of a plugin's routes.
func (h *Host) Base(name string) string {
	return h.base + "/" + name
}

// Serve hands the request to the app of the plugin named by :pluginName.
func (h *Host) Serve(c *fiber.Ctx) error {
	name := c.Params("pluginName")
	h.mu.RLock()
	app, ok := h.apps[name]
	h.mu.RUnlock()
	if !ok {
		return httpx.WithRepErr(c, httpx.NotFound.Code, "plugin "+name+" has no routes")
	}
	app.Handler()(c.Context())
	return nil
}
