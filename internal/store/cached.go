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

package store

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/pkg/cache"
	"github.com/go-strange/strange/pkg/log"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cached is a read-through cache in front of a Backend. Saves write the
// backend first and then drop the cached copy.
type Cached struct {
	next  Backend
	cache cache.ICache
	ttl   time.Duration
}

func NewCached(next Backend, c cache.ICache, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cached{next: next, cache: c, ttl: ttl}
}

func configKey(plugin string) string   { return "config:" + plugin }
func settingsKey(tenant string) string { return "settings:" + tenant }

// readThrough decodes a cached value into out, or loads it with fn and
// caches the result. Cache failures fall back to the backend.
func readThrough[T any](ctx context.Context, c *Cached, key string, out *T, fn func() (T, error)) error {
	raw, err := c.cache.Get(ctx, key).Result()
	if err == nil {
		if err = sonic.UnmarshalString(raw, out); err == nil {
			return nil
		}
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warnw("cache read failed", "key", key, "error", err)
	}

	v, err := fn()
	if err != nil {
		return err
	}
	*out = v
	encoded, err := sonic.MarshalString(v)
	if err == nil {
		err = c.cache.Set(ctx, key, encoded, c.ttl).Err()
	}
	if err != nil {
		log.Warnw("cache write failed", "key", key, "error", err)
	}
	return nil
}

func (c *Cached) invalidate(ctx context.Context, key string) {
	if err := c.cache.Del(ctx, key).Err(); err != nil {
		log.Warnw("cache invalidate failed", "key", key, "error", err)
	}
}

func (c *Cached) LoadConfig(ctx context.Context, plugin string) (ConfigData, error) {
	var data ConfigData
	err := readThrough(ctx, c, configKey(plugin), &data, func() (ConfigData, error) {
		return c.next.LoadConfig(ctx, plugin)
	})
	if data == nil && err == nil {
		data = ConfigData{}
	}
	return data, err
}

func (c *Cached) SaveConfig(ctx context.Context, plugin string, data ConfigData) error {
	if err := c.next.SaveConfig(ctx, plugin, data); err != nil {
		return err
	}
	c.invalidate(ctx, configKey(plugin))
	return nil
}

func (c *Cached) LoadSettings(ctx context.Context, tenant string) (Settings, error) {
	var s Settings
	err := readThrough(ctx, c, settingsKey(tenant), &s, func() (Settings, error) {
		return c.next.LoadSettings(ctx, tenant)
	})
	return s, err
}

func (c *Cached) SaveSettings(ctx context.Context, tenant string, s Settings) error {
	if err := c.next.SaveSettings(ctx, tenant, s); err != nil {
		return err
	}
	c.invalidate(ctx, settingsKey(tenant))
	return nil
}
