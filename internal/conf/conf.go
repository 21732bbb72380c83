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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-strange/strange/pkg/cache"
	"github.com/go-strange/strange/pkg/database"
	"github.com/go-strange/strange/pkg/http"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/pprof"
	"github.com/spf13/viper"
)

const envPrefix = "STRANGE"

// IpcConfig configures the broker between the dashboard and the bot shards.
type IpcConfig struct {
	Host           string
	Port           int
	Path           string
	URL            string // dial address used by shards, e.g. ws://127.0.0.1:7001/ipc
	Shard          string // shard name sent on connect
	RetryInterval  time.Duration
	RequestTimeout time.Duration
	HealthInterval time.Duration
}

func (c IpcConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PluginConfig locates the registry and the plugin directories.
type PluginConfig struct {
	RegistryPath       string
	PluginsDir         string
	RepoCacheDir       string
	Branch             string
	Depth              int
	InstallCommand     []string
	PostInstallCommand []string
	LockAttempts       int
	FetchAttempts      int
}

// QueueConfig tunes the command registration queue.
type QueueConfig struct {
	Gap          time.Duration
	Cooldown     time.Duration
	CleanupAfter time.Duration
	CleanupSpec  string
}

type AppConfig struct {
	Log      log.Conf
	Http     http.Http
	Ipc      IpcConfig
	Plugin   PluginConfig
	Queue    QueueConfig
	Database database.Database
	Redis    cache.Redis
	Metrics  metrics.Conf
	Pprof    pprof.Conf
}

var (
	cfg  AppConfig
	once sync.Once
)

// NewConf loads the configuration once per process and panics on failure.
func NewConf(path string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(path)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.path", "./logs")
	v.SetDefault("log.filename", "strange.log")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.keepHours", 7)
	v.SetDefault("log.rotateSize", 100)
	v.SetDefault("log.rotateNum", 10)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.contextPath", "/api/v1")
	v.SetDefault("http.accessLog", true)
	v.SetDefault("http.readTimeout", 30)
	v.SetDefault("http.writeTimeout", 30)
	v.SetDefault("http.idleTimeout", 60)
	v.SetDefault("http.shutdownTimeout", 10)

	v.SetDefault("ipc.host", "127.0.0.1")
	v.SetDefault("ipc.port", 7001)
	v.SetDefault("ipc.path", "/ipc")
	v.SetDefault("ipc.url", "ws://127.0.0.1:7001/ipc")
	v.SetDefault("ipc.shard", "shard-0")
	v.SetDefault("ipc.retryInterval", "1s")
	v.SetDefault("ipc.requestTimeout", "30s")
	v.SetDefault("ipc.healthInterval", "10s")

	v.SetDefault("plugin.registryPath", "./plugins.json")
	v.SetDefault("plugin.pluginsDir", "./plugins")
	v.SetDefault("plugin.repoCacheDir", "./.repo-cache")
	v.SetDefault("plugin.branch", "main")
	v.SetDefault("plugin.depth", 1)
	v.SetDefault("plugin.lockAttempts", 60)
	v.SetDefault("plugin.fetchAttempts", 3)

	v.SetDefault("queue.gap", "250ms")
	v.SetDefault("queue.cooldown", "10s")
	v.SetDefault("queue.cleanupAfter", "60s")
	v.SetDefault("queue.cleanupSpec", "@every 60s")

	v.SetDefault("database.driver", database.DriverMemory)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", "single")
	v.SetDefault("redis.keyPrefix", "strange:")

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.host", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("pprof.enable", false)
	v.SetDefault("pprof.host", "127.0.0.1")
	v.SetDefault("pprof.port", 6060)
	v.SetDefault("pprof.prefix", "/debug/pprof")
}

// LoadConfigFile reads a TOML file, applies STRANGE_* environment overrides
// and watches the file. A change re-applies the log level.
func LoadConfigFile(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return AppConfig{}, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return AppConfig{}, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			log.Errorw("failed to reload configuration", "file", e.Name, "error", err)
			return
		}
		log.Infow("configuration changed", "file", e.Name, "level", next.Log.Level)
		log.SetLevel(next.Log.Level)
	})
	v.WatchConfig()

	log.Infow("config file loaded", "path", path)
	return c, nil
}

// Validate rejects settings the managers cannot run with.
func (c *AppConfig) Validate() error {
	if c.Plugin.PluginsDir == "" {
		return fmt.Errorf("plugin.pluginsDir is required")
	}
	if c.Plugin.RegistryPath == "" {
		return fmt.Errorf("plugin.registryPath is required")
	}
	if c.Queue.Gap <= 0 {
		return fmt.Errorf("queue.gap must be positive")
	}
	return c.Database.Validate()
}
