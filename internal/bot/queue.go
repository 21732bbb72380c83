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
	"sync"
	"time"

	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/orderly"
	"github.com/go-strange/strange/pkg/safe"
	"golang.org/x/time/rate"
)

const (
	defaultGap          = 250 * time.Millisecond
	defaultCooldown     = 10 * time.Second
	defaultCleanupAfter = 60 * time.Second
	defaultCleanupSpec  = "@every 60s"

	cleanupJob = "registration-cleanup"
)

// Registrar pushes the commands of one tenant.
type Registrar func(ctx context.Context, tenant string, force bool) error

type request struct {
	force    bool
	queuedAt time.Time
}

// RegistrationQueue serializes command registration per tenant. Requests
// for a queued tenant replace its parameters and keep its position. One
// drain goroutine runs at a time and registers at most one tenant per gap.
type RegistrationQueue struct {
	pending  *orderly.Map[string, request]
	limiter  *rate.Limiter
	register Registrar

	cooldown     time.Duration
	cleanupAfter time.Duration
	cleanupSpec  string

	mu      sync.Mutex
	running bool
	idle    chan struct{}
	last    map[string]time.Time
	retry   map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewRegistrationQueue(c conf.QueueConfig, register Registrar) *RegistrationQueue {
	if c.Gap <= 0 {
		c.Gap = defaultGap
	}
	if c.Cooldown <= 0 {
		c.Cooldown = defaultCooldown
	}
	if c.CleanupAfter <= 0 {
		c.CleanupAfter = defaultCleanupAfter
	}
	if c.CleanupSpec == "" {
		c.CleanupSpec = defaultCleanupSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &RegistrationQueue{
		pending:      orderly.New[string, request](0),
		limiter:      rate.NewLimiter(rate.Every(c.Gap), 1),
		register:     register,
		cooldown:     c.Cooldown,
		cleanupAfter: c.CleanupAfter,
		cleanupSpec:  c.CleanupSpec,
		idle:         idle,
		last:         make(map[string]time.Time),
		retry:        make(map[string]*time.Timer),
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}
}

// Enqueue adds tenant or updates its queued request.
func (q *RegistrationQueue) Enqueue(tenant string, force bool) {
	q.pending.Update(tenant, func(old request, exists bool) request {
		if exists {
			return request{force: force, queuedAt: old.queuedAt}
		}
		return request{force: force, queuedAt: q.now()}
	})
	metrics.RegistrationQueueDepth.Set(float64(q.pending.Len()))
	log.Debugw("queued command registration", "tenant", tenant, "force", force)
}

// Kick starts the drain goroutine unless it is already running.
func (q *RegistrationQueue) Kick() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.ctx.Err() != nil {
		return
	}
	q.running = true
	q.idle = make(chan struct{})
	safe.Go(q.drain)
}

// Register queues tenant and starts draining.
func (q *RegistrationQueue) Register(tenant string, force bool) {
	q.Enqueue(tenant, force)
	q.Kick()
}

// Idle is closed when no drain is running.
func (q *RegistrationQueue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idle
}

func (q *RegistrationQueue) Len() int {
	return q.pending.Len()
}

func (q *RegistrationQueue) drain() {
	for {
		q.mu.Lock()
		tenant, req, ok := q.pending.PopFront()
		if !ok || q.ctx.Err() != nil {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
		metrics.RegistrationQueueDepth.Set(float64(q.pending.Len()))

		if wait := q.wait(tenant); !req.force && wait > 0 {
			log.Debugw("registration too recent, retrying after cooldown", "tenant", tenant, "wait", wait)
			metrics.RecordRegistration("skipped")
			q.retryAfter(tenant, wait)
			continue
		}
		if err := q.limiter.Wait(q.ctx); err != nil {
			continue
		}
		q.touch(tenant)

		err := safe.Try(func() error { return q.register(q.ctx, tenant, req.force) })
		if err != nil {
			log.Errorw("failed to register commands", "tenant", tenant, "error", err)
			metrics.RecordRegistration("error")
			continue
		}
		metrics.RecordRegistration("ok")
	}
}

func (q *RegistrationQueue) recent(tenant string) bool {
	return q.wait(tenant) > 0
}

// wait is the time left in the cooldown of tenant.
func (q *RegistrationQueue) wait(tenant string) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.last[tenant]
	if !ok {
		return 0
	}
	return q.cooldown - q.now().Sub(t)
}

// retryAfter queues tenant again once its cooldown is over. A tenant has
// at most one pending retry.
func (q *RegistrationQueue) retryAfter(tenant string, wait time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.retry[tenant]; ok || q.ctx.Err() != nil {
		return
	}
	q.retry[tenant] = time.AfterFunc(wait, func() {
		q.mu.Lock()
		delete(q.retry, tenant)
		q.mu.Unlock()
		q.Register(tenant, false)
	})
}

func (q *RegistrationQueue) touch(tenant string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last[tenant] = q.now()
}

// Cleanup forgets registrations older than the cleanup age.
func (q *RegistrationQueue) Cleanup() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for tenant, t := range q.last {
		if now.Sub(t) > q.cleanupAfter {
			delete(q.last, tenant)
		}
	}
}

// Schedule runs Cleanup on scheduler.
func (q *RegistrationQueue) Schedule(scheduler *cron.Cron) error {
	return scheduler.AddFunc(q.cleanupSpec, q.Cleanup, cleanupJob)
}

// Close stops the drain after the current registration and drops pending
// retries.
func (q *RegistrationQueue) Close() {
	q.cancel()
	q.mu.Lock()
	defer q.mu.Unlock()
	for tenant, timer := range q.retry {
		timer.Stop()
		delete(q.retry, tenant)
	}
}
