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

	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	httpx "github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// Dashboard owns the admin API, the IPC server and the local plugins.
type Dashboard struct {
	cfg     httpx.Http
	manager *plugin.Manager
	server  *ipc.Server
	app     *fiber.App
	stop    func(ctx context.Context) error
}

func New(cfg httpx.Http, manager *plugin.Manager, server *ipc.Server, rt *Router) *Dashboard {
	return &Dashboard{cfg: cfg, manager: manager, server: server, app: rt.Router()}
}

func (d *Dashboard) App() *fiber.App {
	return d.app
}

// Start enables the persisted plugins, then accepts shards and admin traffic.
func (d *Dashboard) Start(ctx context.Context) error {
	if err := d.manager.Init(ctx); err != nil {
		return err
	}
	if err := d.server.Start(); err != nil {
		return err
	}
	d.stop = httpx.Serve(d.app, d.cfg)
	log.Infow("dashboard started", "plugins", d.manager.Names())
	return nil
}

func (d *Dashboard) Stop(ctx context.Context) error {
	if d.stop != nil {
		if err := d.stop(ctx); err != nil {
			log.Warnw("failed to stop http server", "error", err)
		}
	}
	if err := d.server.Stop(ctx); err != nil {
		log.Warnw("failed to stop ipc server", "error", err)
	}
	return d.manager.Shutdown(ctx)
}
