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
	"sync"

	"github.com/go-strange/strange/pkg/log"
)

var (
	// ErrNotInitialized is returned when trying to use global cron before initialization
	ErrNotInitialized = errors.New("global cron instance is not initialized")
)

var (
	globalCron *Cron
	globalMu   sync.RWMutex
	once       sync.Once
)

// Init creates the process-wide scheduler once.
func Init(opts ...OpOption) *Cron {
	once.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()

		globalCron = New(opts...)
		log.Debugw("global cron initialized")
	})
	return Get()
}

// Get returns the process-wide scheduler, nil before Init.
func Get() *Cron {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCron
}

// Start starts the process-wide scheduler.
func Start() {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c != nil {
		c.Start()
	}
}

// Stop stops the process-wide scheduler.
func Stop() {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c != nil {
		c.Stop()
	}
}

// AddFunc adds a func to the global cron instance
func AddFunc(spec string, cmd func(), names ...string) error {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c == nil {
		return ErrNotInitialized
	}

	return c.AddFunc(spec, cmd, names...)
}

// AddJob adds a job to the global cron instance
func AddJob(spec string, cmd Job, names ...string) error {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c == nil {
		return ErrNotInitialized
	}

	return c.AddJob(spec, cmd, names...)
}

// Remove removes a job from the global cron instance
func Remove(name string) error {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c == nil {
		return ErrNotInitialized
	}

	return c.Remove(name)
}

// Entries returns all entries from the global cron instance
func Entries() []*Entry {
	globalMu.RLock()
	c := globalCron
	globalMu.RUnlock()

	if c == nil {
		return nil
	}

	return c.Entries()
}
