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

package cron

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCron_AddFuncRuns(t *testing.T) {
	c := New()
	var runs atomic.Int32
	require.NoError(t, c.AddFunc("@every 1s", func() { runs.Add(1) }, "cleanup"))

	c.Start()
	defer c.Stop()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestCron_DuplicateAndInvalid(t *testing.T) {
	c := New()
	require.NoError(t, c.AddFunc("@every 10s", func() {}, "health"))
	assert.ErrorIs(t, c.AddFunc("@every 10s", func() {}, "health"), ErrDuplicateName)
	assert.Error(t, c.AddFunc("not a spec", func() {}, "broken"))

	require.NoError(t, c.AddFunc("*/5 * * * * *", func() {}))
	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "health", entries[0].Name)
	assert.Equal(t, "job-1", entries[1].Name)
}

func TestCron_Remove(t *testing.T) {
	c := New()
	var runs atomic.Int32
	require.NoError(t, c.AddFunc("@every 1s", func() { runs.Add(1) }, "queue"))
	require.NoError(t, c.Remove("queue"))
	assert.ErrorIs(t, c.Remove("queue"), ErrJobNotFound)
	assert.Empty(t, c.Entries())

	c.Start()
	time.Sleep(1200 * time.Millisecond)
	c.Stop()
	assert.Equal(t, int32(0), runs.Load())
}

func TestCron_PanicIsRecovered(t *testing.T) {
	c := New()
	var runs atomic.Int32
	require.NoError(t, c.AddFunc("@every 1s", func() {
		runs.Add(1)
		panic("boom")
	}, "panics"))

	c.Start()
	defer c.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 20*time.Millisecond)
}

func TestCron_StartStopIdempotent(t *testing.T) {
	c := New()
	c.Start()
	c.Start()
	assert.True(t, c.IsRunning())
	c.Stop()
	c.Stop()
	assert.False(t, c.IsRunning())
}

func TestGlobal(t *testing.T) {
	c := Init()
	require.NotNil(t, c)
	assert.Same(t, c, Init())
	assert.Same(t, c, Get())
	require.NoError(t, AddFunc("@every 1h", func() {}, "global-job"))
	assert.NotEmpty(t, Entries())
	require.NoError(t, Remove("global-job"))
}
