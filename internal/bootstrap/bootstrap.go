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

// Package bootstrap runs a process: it starts the metrics server and the
// service, waits for a signal and shuts everything down in reverse order.
package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/pprof"
	"github.com/go-strange/strange/pkg/shutdown"
)

const shutdownTimeout = 30 * time.Second

// Service is the bot shard or the dashboard.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	Service Service
	Metrics *metrics.Server
	Pprof   *pprof.Server
	AppConf conf.AppConfig
}

func NewApp(service Service, m *metrics.Server, p *pprof.Server, appConf conf.AppConfig) *App {
	return &App{Service: service, Metrics: m, Pprof: p, AppConf: appConf}
}

// InitAppFunc is generated by wire for each binary.
type InitAppFunc func(configPath string) (*App, func(), error)

// Bootstrap loads the configuration, installs the logger and builds the app.
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	appConf := conf.NewConf(configFile)
	if err := log.Init(&appConf.Log); err != nil {
		return nil, nil, err
	}
	return initApp(configFile)
}

// Run starts app and blocks until SIGINT, SIGTERM or SIGQUIT.
func Run(app *App, cleanup func()) error {
	ctx := context.Background()
	hooks := shutdown.NewManager()
	hooks.Register("cleanup", func(context.Context) error {
		cleanup()
		return nil
	})

	if err := app.Metrics.Start(); err != nil {
		return err
	}
	hooks.Register("metrics", app.Metrics.Stop)

	if err := app.Pprof.Start(); err != nil {
		return err
	}
	hooks.Register("pprof", app.Pprof.Stop)

	if err := app.Service.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		_ = hooks.Shutdown(shutdownCtx)
		return err
	}
	hooks.Register("service", app.Service.Stop)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	for sig := range quit {
		if sig == syscall.SIGHUP {
			log.Infow("received SIGHUP, configuration reload is handled by the watcher")
			continue
		}
		log.Infow("received signal, shutting down", "signal", sig.String())
		break
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := hooks.Shutdown(shutdownCtx)
	if err != nil {
		log.Errorw("shutdown finished with errors", "error", err)
	} else {
		log.Infow("shutdown complete")
	}
	_ = log.Sync()
	return err
}
