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

package http

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/version"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

type Http struct {
	Host            string
	Port            int
	ContextPath     string
	AccessLog       bool
	BodyLimit       int
	ReadTimeout     int
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
}

// Addr returns host:port.
func (h Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NewApp builds a fiber app with recovery, access log, health and version
// routes. Routes are added by the caller.
func NewApp(cfg Http, name string) *fiber.App {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(cfg.IdleTimeout) * time.Second,
		BodyLimit:             bodyLimit,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
	})

	app.Use(fiberrecover.New())
	if cfg.AccessLog {
		app.Use(AccessLog())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(Response{Code: code, Msg: err.Error(), Path: c.Path()})
}

// Serve starts app in the background and returns a stop function bounded by
// the configured shutdown timeout.
func Serve(app *fiber.App, cfg Http) func(ctx context.Context) error {
	go func() {
		log.Infow("http server started", "address", cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Errorw("http server stopped", "error", err)
		}
	}()

	return func(ctx context.Context) error {
		timeout := time.Duration(cfg.ShutdownTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return app.ShutdownWithContext(ctx)
	}
}
