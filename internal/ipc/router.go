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

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/safe"
)

const (
	errInvalidEvent    = "Invalid event format"
	errHandlerNotFound = "Handler not found"
)

// Handler answers one message.
type Handler interface {
	Handle(ctx context.Context, msg Message) Reply
}

type HandlerFunc func(ctx context.Context, msg Message) Reply

func (f HandlerFunc) Handle(ctx context.Context, msg Message) Reply {
	return f(ctx, msg)
}

// PluginHandlers finds the IPC handler a live plugin registered for verb.
type PluginHandlers interface {
	IPCHandler(pluginName, verb string) (plugin.IPCHandler, bool)
}

type ControlFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Router dispatches by namespace: control verbs under ControlNamespace,
// everything else to the plugin named by the namespace.
type Router struct {
	mu      sync.RWMutex
	control map[string]ControlFunc
	plugins PluginHandlers
}

func NewRouter(plugins PluginHandlers) *Router {
	return &Router{control: make(map[string]ControlFunc), plugins: plugins}
}

// HandleControl registers a verb of the control namespace.
func (r *Router) HandleControl(verb string, fn ControlFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.control[verb] = fn
}

func (r *Router) Handle(ctx context.Context, msg Message) Reply {
	ns, verb, ok := SplitEvent(msg.Event)
	if !ok {
		return Fail(msg.ID, errInvalidEvent)
	}

	var fn func(ctx context.Context, payload json.RawMessage) (any, error)
	if ns == ControlNamespace {
		r.mu.RLock()
		c, found := r.control[verb]
		r.mu.RUnlock()
		if !found {
			return Fail(msg.ID, errHandlerNotFound)
		}
		fn = c
	} else {
		if r.plugins == nil {
			return Fail(msg.ID, errHandlerNotFound)
		}
		h, found := r.plugins.IPCHandler(ns, verb)
		if !found {
			return Fail(msg.ID, errHandlerNotFound)
		}
		fn = h
	}

	var data any
	err := safe.Try(func() error {
		var err error
		data, err = fn(ctx, msg.Payload)
		return err
	})
	if err != nil {
		var pe *safe.PanicError
		if errors.As(err, &pe) {
			log.Errorw("ipc handler panicked", "event", msg.Event, "panic", pe.Value, "stack", string(pe.Stack))
		} else {
			log.Errorw("ipc handler failed", "event", msg.Event, "error", err)
		}
		return Fail(msg.ID, err.Error())
	}
	return OK(msg.ID, data)
}
