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
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastCache_SetGet(t *testing.T) {
	c := NewFastCache(1024 * 1024)
	ctx := context.Background()

	require.Equal(t, "OK", c.Set(ctx, "k", "v", time.Hour).Val())
	got, err := c.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFastCache_Miss(t *testing.T) {
	c := NewFastCache(0)
	_, err := c.Get(context.Background(), "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestFastCache_StructValue(t *testing.T) {
	c := NewFastCache(0)
	ctx := context.Background()

	c.Set(ctx, "cfg", map[string][]string{"ENABLED_PLUGINS": {"core"}}, 0)
	got, err := c.Get(ctx, "cfg").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ENABLED_PLUGINS":["core"]}`, got)
}

func TestFastCache_Expiration(t *testing.T) {
	c := NewFastCache(0)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	assert.Equal(t, int64(1), c.Exists(ctx, "k").Val())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, int64(0), c.Exists(ctx, "k").Val())
	_, err := c.Get(ctx, "k").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestFastCache_Expire(t *testing.T) {
	c := NewFastCache(0)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	assert.False(t, c.Expire(ctx, "missing", time.Second).Val())

	c.Set(ctx, "k", "v", 0)
	assert.True(t, c.Expire(ctx, "k", time.Second).Val())
	now = now.Add(time.Hour)
	assert.Equal(t, int64(0), c.Exists(ctx, "k").Val())
}

func TestFastCache_Del(t *testing.T) {
	c := NewFastCache(0)
	ctx := context.Background()

	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)
	assert.Equal(t, int64(2), c.Del(ctx, "a", "b", "c").Val())
	assert.Equal(t, int64(0), c.Exists(ctx, "a", "b").Val())
}

func TestRedisCache_Prefix(t *testing.T) {
	rc := NewRedisCache(nil, "strange:")
	assert.Equal(t, "strange:config:42", rc.key("config:42"))
	assert.Equal(t, []string{"strange:a", "strange:b"}, rc.keys([]string{"a", "b"}))
}
