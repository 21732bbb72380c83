//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-strange/strange/internal/bootstrap"
	"github.com/go-strange/strange/internal/bot"
	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/internal/store"
	"github.com/go-strange/strange/pkg/cache"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/pprof"
	"github.com/google/wire"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		conf.ProviderSet,
		cache.ProviderSet,
		store.ProviderSet,
		plugin.ProviderSet,
		cron.ProviderSet,
		ipc.ClientProviderSet,
		bot.ProviderSet,
		metrics.ProviderSet,
		pprof.ProviderSet,
		wire.Bind(new(bootstrap.Service), new(*bot.Shard)),
		bootstrap.NewApp,
	))
}
