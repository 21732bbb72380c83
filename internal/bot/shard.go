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

	"github.com/go-strange/strange/internal/ipc"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/safe"
)

// Shard is one bot process: the bot plus its link to the dashboard.
type Shard struct {
	bot       *Bot
	client    *ipc.Client
	scheduler *cron.Cron

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewShard(b *Bot, client *ipc.Client, scheduler *cron.Cron) *Shard {
	return &Shard{bot: b, client: client, scheduler: scheduler}
}

func (s *Shard) Bot() *Bot {
	return s.bot
}

// Start enables the plugins before the shard becomes reachable over IPC.
func (s *Shard) Start(ctx context.Context) error {
	if err := s.bot.Start(ctx, s.scheduler); err != nil {
		return err
	}
	if s.client == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	safe.Go(func() {
		defer close(done)
		if err := s.client.Run(runCtx); err != nil {
			log.Errorw("ipc client stopped", "shard", s.client.Name(), "error", err)
		}
	})
	return nil
}

func (s *Shard) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warnw("ipc client did not stop in time")
		}
	}
	return s.bot.Stop(ctx)
}
