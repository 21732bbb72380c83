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

package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/retry"
	"github.com/gofrs/flock"
)

var errLocked = errors.New("lock held")

type keyLock struct {
	ch   chan struct{}
	refs int
}

// Locker serializes work on a path across goroutines and processes: a keyed
// in-process semaphore first, then an advisory file lock at the path.
type Locker struct {
	mu       sync.Mutex
	keys     map[string]*keyLock
	attempts int
	backoff  retry.Backoff
}

// NewLocker waits up to attempts tries for the file lock. Zero values use
// 60 attempts with backoff between 1s and 5s.
func NewLocker(attempts int, backoff retry.Backoff) *Locker {
	if attempts <= 0 {
		attempts = 60
	}
	if backoff == nil {
		backoff = retry.Exponential(time.Second, 5*time.Second)
	}
	return &Locker{
		keys:     make(map[string]*keyLock),
		attempts: attempts,
		backoff:  backoff,
	}
}

// Lock blocks until path is held by the caller. The returned func releases
// both locks and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, path string) (func(), error) {
	k := l.acquireKey(path)
	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseKey(path, k, false)
		return nil, ctx.Err()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.releaseKey(path, k, true)
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(path)
	err := retry.Do(ctx, func(context.Context) error {
		ok, err := fl.TryLock()
		if err != nil {
			return retry.Permanent(err)
		}
		if !ok {
			return errLocked
		}
		return nil
	},
		retry.WithMaxAttempts(l.attempts),
		retry.WithBackoff(l.backoff),
		retry.WithRetryIf(func(err error) bool { return errors.Is(err, errLocked) }),
		retry.WithNotify(func(attempt int, _ error, wait time.Duration) {
			log.Debugw("waiting for lock", "path", path, "attempt", attempt, "wait", wait)
		}),
	)
	if err != nil {
		l.releaseKey(path, k, true)
		if errors.Is(err, errLocked) {
			return nil, newError(ErrLockTimeout, "timed out waiting for lock %s", path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fl.Unlock(); err != nil {
				log.Warnw("failed to release file lock", "path", path, "error", err)
			}
			l.releaseKey(path, k, true)
		})
	}, nil
}

func (l *Locker) acquireKey(path string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.keys[path]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		l.keys[path] = k
	}
	k.refs++
	return k
}

func (l *Locker) releaseKey(path string, k *keyLock, held bool) {
	if held {
		<-k.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.keys, path)
	}
}
