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
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const defaultLocalMaxBytes = 32 * 1024 * 1024

// FastCache is an in-process ICache backed by VictoriaMetrics fastcache.
// Every entry is stored as an 8 byte unix-nano deadline followed by the
// payload; a zero deadline never expires.
type FastCache struct {
	cache *fastcache.Cache
	now   func() time.Time
}

// NewFastCache creates a local cache of at most maxBytes.
func NewFastCache(maxBytes int) *FastCache {
	if maxBytes <= 0 {
		maxBytes = defaultLocalMaxBytes
	}
	return &FastCache{cache: fastcache.New(maxBytes), now: time.Now}
}

func (fc *FastCache) load(key string) ([]byte, bool) {
	raw, ok := fc.cache.HasGet(nil, []byte(key))
	if !ok || len(raw) < 8 {
		return nil, false
	}
	deadline := int64(binary.BigEndian.Uint64(raw[:8]))
	if deadline != 0 && fc.now().UnixNano() >= deadline {
		fc.cache.Del([]byte(key))
		return nil, false
	}
	return raw[8:], true
}

func (fc *FastCache) store(key string, payload []byte, expiration time.Duration) {
	var deadline int64
	if expiration > 0 {
		deadline = fc.now().Add(expiration).UnixNano()
	}
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(deadline))
	copy(buf[8:], payload)
	fc.cache.Set([]byte(key), buf)
}

func (fc *FastCache) Get(_ context.Context, key string) *redis.StringCmd {
	cmd := &redis.StringCmd{}
	v, ok := fc.load(key)
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(v))
	return cmd
}

func (fc *FastCache) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := &redis.StatusCmd{}
	payload, err := toBytes(value)
	if err != nil {
		cmd.SetErr(err)
		return cmd
	}
	fc.store(key, payload, expiration)
	cmd.SetVal("OK")
	return cmd
}

func (fc *FastCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := fc.load(k); ok {
			n++
		}
		fc.cache.Del([]byte(k))
	}
	cmd := &redis.IntCmd{}
	cmd.SetVal(n)
	return cmd
}

func (fc *FastCache) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := fc.load(k); ok {
			n++
		}
	}
	cmd := &redis.IntCmd{}
	cmd.SetVal(n)
	return cmd
}

func (fc *FastCache) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := &redis.BoolCmd{}
	v, ok := fc.load(key)
	if !ok {
		cmd.SetVal(false)
		return cmd
	}
	fc.store(key, v, expiration)
	cmd.SetVal(true)
	return cmd
}

// Reset drops every entry.
func (fc *FastCache) Reset() {
	fc.cache.Reset()
}

// Stats returns the underlying fastcache counters.
func (fc *FastCache) Stats() fastcache.Stats {
	var stats fastcache.Stats
	fc.cache.UpdateStats(&stats)
	return stats
}

func toBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	default:
		return sonic.Marshal(v)
	}
}
