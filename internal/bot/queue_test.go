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

package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	tenant string
	force  bool
}

type registrarLog struct {
	mu    sync.Mutex
	calls []registration
	err   error
}

func (l *registrarLog) register(_ context.Context, tenant string, force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, registration{tenant: tenant, force: force})
	return l.err
}

func (l *registrarLog) list() []registration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]registration(nil), l.calls...)
}

func waitIdle(t *testing.T, q *RegistrationQueue) {
	t.Helper()
	select {
	case <-q.Idle():
	case <-time.After(2 * time.Second):
		t.Fatal("registration queue did not drain")
	}
}

func TestRegistrationQueue_DuplicateEnqueueLatestWins(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond}, rec.register)
	defer q.Close()

	q.Enqueue("g1", false)
	q.Enqueue("g2", false)
	q.Enqueue("g1", true)
	assert.Equal(t, 2, q.Len())

	q.Kick()
	waitIdle(t, q)

	assert.Equal(t, []registration{{"g1", true}, {"g2", false}}, rec.list())
	assert.Zero(t, q.Len())
}

func TestRegistrationQueue_Cooldown(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond, Cooldown: time.Hour}, rec.register)
	defer q.Close()

	q.Register("g1", false)
	waitIdle(t, q)
	q.Register("g1", false)
	waitIdle(t, q)
	q.Register("g1", true)
	waitIdle(t, q)

	assert.Equal(t, []registration{{"g1", false}, {"g1", true}}, rec.list())
}

func TestRegistrationQueue_SkippedTenantRetriesAfterCooldown(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond, Cooldown: 50 * time.Millisecond}, rec.register)
	defer q.Close()

	q.Register("g1", false)
	waitIdle(t, q)
	q.Register("g1", false)
	waitIdle(t, q)
	assert.Len(t, rec.list(), 1)

	assert.Eventually(t, func() bool { return len(rec.list()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []registration{{"g1", false}, {"g1", false}}, rec.list())
}

func TestRegistrationQueue_OneRetryPerTenant(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond, Cooldown: 100 * time.Millisecond}, rec.register)
	defer q.Close()

	q.Register("g1", false)
	waitIdle(t, q)
	for i := 0; i < 3; i++ {
		q.Register("g1", false)
		waitIdle(t, q)
	}

	require.Eventually(t, func() bool { return len(rec.list()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Len(t, rec.list(), 2)
}

func TestRegistrationQueue_CloseDropsRetries(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond, Cooldown: 30 * time.Millisecond}, rec.register)

	q.Register("g1", false)
	waitIdle(t, q)
	q.Register("g1", false)
	waitIdle(t, q)
	q.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, rec.list(), 1)
}

func TestRegistrationQueue_GapBetweenRegistrations(t *testing.T) {
	rec := &registrarLog{}
	gap := 40 * time.Millisecond
	q := NewRegistrationQueue(conf.QueueConfig{Gap: gap}, rec.register)
	defer q.Close()

	start := time.Now()
	for _, tenant := range []string{"g1", "g2", "g3"} {
		q.Enqueue(tenant, false)
	}
	q.Kick()
	waitIdle(t, q)

	assert.Len(t, rec.list(), 3)
	assert.GreaterOrEqual(t, time.Since(start), 2*gap-5*time.Millisecond)
}

func TestRegistrationQueue_FailureDoesNotStopDrain(t *testing.T) {
	rec := &registrarLog{err: errors.New("rate limited")}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond}, rec.register)
	defer q.Close()

	q.Enqueue("g1", false)
	q.Enqueue("g2", false)
	q.Kick()
	waitIdle(t, q)
	assert.Len(t, rec.list(), 2)
}

func TestRegistrationQueue_Cleanup(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond, Cooldown: time.Hour, CleanupAfter: time.Minute}, rec.register)
	defer q.Close()

	now := time.Now()
	q.now = func() time.Time { return now }
	q.Register("g1", false)
	waitIdle(t, q)

	q.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.True(t, q.recent("g1"))
	q.Cleanup()
	assert.False(t, q.recent("g1"))

	q.Register("g1", false)
	waitIdle(t, q)
	assert.Len(t, rec.list(), 2)
}

func TestRegistrationQueue_Schedule(t *testing.T) {
	q := NewRegistrationQueue(conf.QueueConfig{}, (&registrarLog{}).register)
	defer q.Close()

	c := cron.New()
	require.NoError(t, q.Schedule(c))
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, cleanupJob, entries[0].Name)
	assert.Equal(t, defaultCleanupSpec, entries[0].Spec)
}

func TestRegistrationQueue_CloseStopsKick(t *testing.T) {
	rec := &registrarLog{}
	q := NewRegistrationQueue(conf.QueueConfig{Gap: time.Millisecond}, rec.register)
	q.Close()

	q.Register("g1", false)
	waitIdle(t, q)
	assert.Empty(t, rec.list())
	assert.Equal(t, 1, q.Len())
}
