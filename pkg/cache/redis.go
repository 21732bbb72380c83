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

package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-strange/strange/pkg/log"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	Enabled          bool
	Mode             string // single, sentinel, cluster
	Address          string
	Password         string
	DB               int
	PoolSize         int
	UseTLS           bool
	MasterName       string
	SentinelUsername string
	SentinelPassword string
	KeyPrefix        string
	DialTimeout      time.Duration // seconds
	ReadTimeout      time.Duration // seconds
	WriteTimeout     time.Duration // seconds
}

// NewRedis connects to Redis in the configured mode and pings it once.
func NewRedis(cfg Redis) (redis.UniversalClient, error) {
	var tlsConf *tls.Config
	if cfg.UseTLS {
		tlsConf = &tls.Config{}
	}
	addrs := strings.Split(cfg.Address, ",")

	var client redis.UniversalClient
	switch cfg.Mode {
	case "", "single":
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Address,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout * time.Second,
			ReadTimeout:  cfg.ReadTimeout * time.Second,
			WriteTimeout: cfg.WriteTimeout * time.Second,
			TLSConfig:    tlsConf,
		})
	case "sentinel":
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.MasterName,
			SentinelAddrs:    addrs,
			Password:         cfg.Password,
			DB:               cfg.DB,
			PoolSize:         cfg.PoolSize,
			SentinelUsername: cfg.SentinelUsername,
			SentinelPassword: cfg.SentinelPassword,
			DialTimeout:      cfg.DialTimeout * time.Second,
			ReadTimeout:      cfg.ReadTimeout * time.Second,
			WriteTimeout:     cfg.WriteTimeout * time.Second,
			TLSConfig:        tlsConf,
		})
	case "cluster":
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        addrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout * time.Second,
			ReadTimeout:  cfg.ReadTimeout * time.Second,
			WriteTimeout: cfg.WriteTimeout * time.Second,
			TLSConfig:    tlsConf,
		})
	default:
		return nil, fmt.Errorf("unsupported redis mode %q", cfg.Mode)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Errorw("failed to connect redis", "mode", cfg.Mode, "error", err)
		_ = client.Close()
		return nil, err
	}

	log.Infow("redis connected", "mode", cfg.Mode)
	return client, nil
}
