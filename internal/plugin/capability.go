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
	"encoding/json"

	"github.com/go-strange/strange/internal/store"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Kind selects the process a plugin entry point runs in.
type Kind int

const (
	KindBot Kind = iota + 1
	KindDashboard
)

func (k Kind) String() string {
	switch k {
	case KindBot:
		return "bot"
	case KindDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// Result is one plugin's outcome of an emitted event.
type Result struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// DepResults holds the results of a plugin's direct dependencies.
type DepResults map[string]Result

// EventArgs is what the gateway hands to event handlers.
type EventArgs struct {
	TenantID string
	Data     any
}

// EventHandler handles one gateway event. deps is empty for plugins without
// dependencies.
type EventHandler func(ctx context.Context, args EventArgs, deps DepResults) (any, error)

// IPCHandler serves one verb of the plugin's IPC namespace.
type IPCHandler func(ctx context.Context, payload json.RawMessage) (any, error)

// Invocation is a command call from a tenant.
type Invocation struct {
	TenantID  string
	UserID    string
	ChannelID string
	Args      []string
	Options   map[string]any
}

type CommandHandler func(ctx context.Context, inv Invocation) (any, error)

// Command may be exposed as a prefix command, a slash command, or both.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Prefix      bool
	Slash       bool
	Handler     CommandHandler
}

type ContextMenuType int

const (
	ContextUser ContextMenuType = iota + 1
	ContextMessage
)

func (t ContextMenuType) String() string {
	if t == ContextMessage {
		return "message"
	}
	return "user"
}

type ContextMenu struct {
	Name    string
	Type    ContextMenuType
	Handler CommandHandler
}

// Capabilities is what a plugin contributes to its host process. Bot
// instances fill the command and event fields, dashboard instances Routes.
type Capabilities struct {
	Commands      []Command
	ContextMenus  []ContextMenu
	EventHandlers map[string]EventHandler
	IPCHandlers   map[string]IPCHandler
	Routes        func(router fiber.Router)
}

// Services are injected into OnEnable.
type Services struct {
	Config   store.ConfigStore
	Settings store.SettingsStore
	Logger   *zap.SugaredLogger
}

// Instance is a plugin entry point built by a Factory.
type Instance interface {
	Capabilities() Capabilities
}

type Enabler interface {
	OnEnable(ctx context.Context, svc Services) error
}

type Disabler interface {
	OnDisable(ctx context.Context) error
}

type TenantEnabler interface {
	OnTenantEnable(ctx context.Context, tenant string) error
}

type TenantDisabler interface {
	OnTenantDisable(ctx context.Context, tenant string) error
}

// Plugin is a live entry of the manager. It is never mutated after insert.
type Plugin struct {
	Name         string
	Version      string
	Kind         Kind
	Dependencies []string
	Instance     Instance
	Capabilities Capabilities
}

// HasEvent reports whether the plugin handles event.
func (p *Plugin) HasEvent(event string) bool {
	_, ok := p.Capabilities.EventHandlers[event]
	return ok
}

// IPCHandler returns the handler registered for verb.
func (p *Plugin) IPCHandler(verb string) (IPCHandler, bool) {
	h, ok := p.Capabilities.IPCHandlers[verb]
	return h, ok
}
