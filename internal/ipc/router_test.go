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
	"testing"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pluginTable map[string]map[string]plugin.IPCHandler

func (t pluginTable) IPCHandler(name, verb string) (plugin.IPCHandler, bool) {
	h, ok := t[name][verb]
	return h, ok
}

func newTestRouter() *Router {
	r := NewRouter(pluginTable{
		"economy": {
			"BALANCE": func(_ context.Context, payload json.RawMessage) (any, error) {
				var req struct {
					User string `json:"user"`
				}
				if err := json.Unmarshal(payload, &req); err != nil {
					return nil, err
				}
				return map[string]any{"user": req.User, "coins": 42}, nil
			},
			"BROKEN": func(context.Context, json.RawMessage) (any, error) {
				return nil, errors.New("wallet locked")
			},
			"PANIC": func(context.Context, json.RawMessage) (any, error) {
				panic("nil wallet")
			},
		},
	})
	r.HandleControl("GET_BOT_GUILDS", func(context.Context, json.RawMessage) (any, error) {
		return []string{"g1", "g2"}, nil
	})
	return r
}

func handle(t *testing.T, r *Router, event string, payload any) Reply {
	t.Helper()
	msg, err := NewMessage(event, payload, true)
	require.NoError(t, err)
	reply := r.Handle(context.Background(), msg)
	assert.Equal(t, msg.ID, reply.ID)
	return reply
}

func TestRouter_PluginHandler(t *testing.T) {
	reply := handle(t, newTestRouter(), "economy:BALANCE", map[string]string{"user": "u1"})
	require.True(t, reply.Success)

	var data struct {
		User  string `json:"user"`
		Coins int    `json:"coins"`
	}
	require.NoError(t, reply.Decode(&data))
	assert.Equal(t, "u1", data.User)
	assert.Equal(t, 42, data.Coins)
}

func TestRouter_Control(t *testing.T) {
	reply := handle(t, newTestRouter(), "dashboard:GET_BOT_GUILDS", nil)
	require.True(t, reply.Success)
	var guilds []string
	require.NoError(t, reply.Decode(&guilds))
	assert.Equal(t, []string{"g1", "g2"}, guilds)
}

func TestRouter_Errors(t *testing.T) {
	r := newTestRouter()
	tests := []struct {
		event string
		want  string
	}{
		{"no-separator", "Invalid event format"},
		{":VERB", "Invalid event format"},
		{"economy:", "Invalid event format"},
		{"economy:MISSING", "Handler not found"},
		{"music:PLAY", "Handler not found"},
		{"dashboard:UNKNOWN", "Handler not found"},
		{"economy:BROKEN", "wallet locked"},
		{"economy:PANIC", "panic: nil wallet"},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			reply := handle(t, r, tt.event, nil)
			assert.False(t, reply.Success)
			assert.Equal(t, tt.want, reply.Error)
		})
	}
}

func TestSplitEvent(t *testing.T) {
	ns, verb, ok := SplitEvent("economy:BALANCE")
	assert.True(t, ok)
	assert.Equal(t, "economy", ns)
	assert.Equal(t, "BALANCE", verb)

	ns, verb, ok = SplitEvent(Event("a", "b:c"))
	assert.True(t, ok)
	assert.Equal(t, "a", ns)
	assert.Equal(t, "b:c", verb)
}
