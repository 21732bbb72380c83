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
	"slices"
	"sync"
	"time"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/safe"
	"golang.org/x/sync/errgroup"
)

// Emit runs the handlers of event in the plugins active for args.TenantID.
// Plugins without dependencies run concurrently. Plugins with dependencies
// then run one by one in enable order and receive their dependencies'
// results. A failing handler yields {false, nil} for its plugin only.
func (b *Bot) Emit(ctx context.Context, event string, args plugin.EventArgs) map[string]plugin.Result {
	start := time.Now()
	active := b.manager.TenantPlugins(ctx, args.TenantID)

	var independent, dependent []*plugin.Plugin
	for _, p := range b.manager.Plugins() {
		if !p.HasEvent(event) || !slices.Contains(active, p.Name) {
			continue
		}
		if len(p.Dependencies) == 0 {
			independent = append(independent, p)
		} else {
			dependent = append(dependent, p)
		}
	}

	var mu sync.Mutex
	results := make(map[string]plugin.Result, len(independent)+len(dependent))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range independent {
		g.Go(func() error {
			r := invoke(gctx, p, event, args, plugin.DepResults{})
			mu.Lock()
			results[p.Name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range dependent {
		deps := make(plugin.DepResults, len(p.Dependencies))
		for _, dep := range p.Dependencies {
			if r, ok := results[dep]; ok {
				deps[dep] = r
			}
		}
		results[p.Name] = invoke(ctx, p, event, args, deps)
	}

	var failed int
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	metrics.RecordDispatch(event, len(results)-failed, failed, time.Since(start))
	return results
}

func invoke(ctx context.Context, p *plugin.Plugin, event string, args plugin.EventArgs, deps plugin.DepResults) plugin.Result {
	handler := p.Capabilities.EventHandlers[event]
	var data any
	err := safe.Try(func() error {
		var err error
		data, err = handler(ctx, args, deps)
		return err
	})
	if err != nil {
		var pe *safe.PanicError
		if errors.As(err, &pe) {
			log.Errorw("event handler panicked", "plugin", p.Name, "event", event, "panic", pe.Value, "stack", string(pe.Stack))
		} else {
			log.Errorw("event handler failed", "plugin", p.Name, "event", event, "error", err)
		}
		return plugin.Result{Success: false, Data: nil}
	}
	return plugin.Result{Success: true, Data: data}
}
