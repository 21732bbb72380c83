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
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/safe"
	"github.com/robfig/cron"
)

var (
	ErrDuplicateName = errors.New("cron job name already registered")
	ErrJobNotFound   = errors.New("cron job not found")
)

// Job is a unit of scheduled work.
type Job interface {
	Run()
}

type FuncJob func()

func (f FuncJob) Run() { f() }

// Entry describes a named job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type namedJob struct {
	name    string
	spec    string
	job     Job
	removed atomic.Bool
	running atomic.Bool
}

// Run skips a tick while the previous run of the same job is still going.
func (j *namedJob) Run() {
	if j.removed.Load() || !j.running.CompareAndSwap(false, true) {
		return
	}
	defer j.running.Store(false)
	safe.Do(j.job.Run)
}

// Cron runs named jobs on cron specs. Specs have a seconds field and accept
// descriptors such as "@every 10s".
type Cron struct {
	mu       sync.Mutex
	c        *cron.Cron
	jobs     map[string]*namedJob
	location *time.Location
	running  bool
	seq      int
}

type OpOption func(*Cron)

func WithLocation(loc *time.Location) OpOption {
	return func(c *Cron) {
		if loc != nil {
			c.location = loc
		}
	}
}

func New(opts ...OpOption) *Cron {
	c := &Cron{jobs: make(map[string]*namedJob), location: time.Local}
	for _, opt := range opts {
		opt(c)
	}
	c.c = cron.NewWithLocation(c.location)
	return c
}

// AddFunc schedules cmd. names[0] names the job, otherwise one is generated.
func (c *Cron) AddFunc(spec string, cmd func(), names ...string) error {
	return c.AddJob(spec, FuncJob(cmd), names...)
}

func (c *Cron) AddJob(spec string, job Job, names ...string) error {
	schedule, err := cron.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := ""
	if len(names) > 0 {
		name = names[0]
	}
	if name == "" {
		c.seq++
		name = fmt.Sprintf("job-%d", c.seq)
	}
	if _, ok := c.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	j := &namedJob{name: name, spec: spec, job: job}
	c.jobs[name] = j
	c.c.Schedule(schedule, j)
	log.Debugw("cron job added", "name", name, "spec", spec)
	return nil
}

// Remove stops future runs of the named job.
func (c *Cron) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	j.removed.Store(true)
	delete(c.jobs, name)
	return nil
}

// Entries lists the live jobs sorted by name.
func (c *Cron) Entries() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Entry, 0, len(c.jobs))
	for _, e := range c.c.Entries() {
		j, ok := e.Job.(*namedJob)
		if !ok || j.removed.Load() {
			continue
		}
		out = append(out, &Entry{Name: j.name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (c *Cron) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.c.Start()
}

func (c *Cron) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.c.Stop()
}

func (c *Cron) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
