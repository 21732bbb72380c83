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

package conf

import (
	"github.com/go-strange/strange/pkg/cache"
	"github.com/go-strange/strange/pkg/database"
	"github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/pprof"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewConf,
	ProvideLogConf,
	ProvideHttpConf,
	ProvideIpcConf,
	ProvidePluginConf,
	ProvideQueueConf,
	ProvideDatabaseConf,
	ProvideRedisConf,
	ProvideMetricsConf,
	ProvidePprofConf,
)

func ProvideLogConf(c AppConfig) *log.Conf {
	return &c.Log
}

func ProvideHttpConf(c AppConfig) http.Http {
	return c.Http
}

func ProvideIpcConf(c AppConfig) IpcConfig {
	return c.Ipc
}

func ProvidePluginConf(c AppConfig) PluginConfig {
	return c.Plugin
}

func ProvideQueueConf(c AppConfig) QueueConfig {
	return c.Queue
}

func ProvideDatabaseConf(c AppConfig) database.Database {
	return c.Database
}

func ProvideRedisConf(c AppConfig) cache.Redis {
	return c.Redis
}

func ProvideMetricsConf(c AppConfig) metrics.Conf {
	return c.Metrics
}

func ProvidePprofConf(c AppConfig) pprof.Conf {
	return c.Pprof
}
