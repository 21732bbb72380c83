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
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeShard answers every frame through the server as a connected bot would.
type fakeShard struct {
	id       string
	name     string
	server   *Server
	respond  func(msg Message) (Reply, bool)
	writeErr error

	mu   sync.Mutex
	seen []Message
}

func (f *fakeShard) ID() string         { return f.id }
func (f *fakeShard) Name() string       { return f.name }
func (f *fakeShard) RemoteAddr() string { return "pipe" }
func (f *fakeShard) Close() error       { return nil }

func (f *fakeShard) WriteMessage(_ int, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	f.seen = append(f.seen, msg)
	f.mu.Unlock()

	reply, ok := f.respond(msg)
	if !ok {
		return nil
	}
	reply.ID = msg.ID
	raw, err := sonic.Marshal(reply)
	if err != nil {
		return err
	}
	go func() { _ = f.server.OnMessage(f, 1, raw) }()
	return nil
}

func echoShard(s *Server, n int) *fakeShard {
	name := fmt.Sprintf("shard-%d", n)
	return &fakeShard{
		id:     name,
		name:   name,
		server: s,
		respond: func(msg Message) (Reply, bool) {
			return OK(msg.ID, name), true
		},
	}
}

func newTestServer(timeout time.Duration) *Server {
	return NewServer(conf.IpcConfig{Path: "/ipc", RequestTimeout: timeout}, nil)
}

func TestServer_BroadcastPartialFailure(t *testing.T) {
	s := newTestServer(time.Second)
	s0, s1, s2 := echoShard(s, 0), echoShard(s, 1), echoShard(s, 2)
	s1.respond = func(msg Message) (Reply, bool) { return Fail(msg.ID, "plugin failed to enable"), true }
	for _, c := range []*fakeShard{s0, s1, s2} {
		s.Hub().Register(c)
	}

	replies := s.Broadcast(context.Background(), "dashboard:UPDATE_PLUGIN", map[string]string{"pluginName": "economy", "action": "enable"})
	require.Len(t, replies, 3)

	failed := 0
	for _, r := range replies {
		if !r.Success {
			failed++
			assert.Equal(t, "plugin failed to enable", r.Error)
		}
	}
	assert.Equal(t, 1, failed)

	var first string
	require.NoError(t, replies[0].Decode(&first))
	assert.Equal(t, "shard-0", first)

	var payload struct {
		PluginName string `json:"pluginName"`
	}
	require.NoError(t, s2.seen[0].DecodePayload(&payload))
	assert.Equal(t, "economy", payload.PluginName)
	assert.True(t, s2.seen[0].Receptive)
}

func TestServer_BroadcastReportsUnreachableShards(t *testing.T) {
	s := newTestServer(50 * time.Millisecond)
	ok := echoShard(s, 0)
	broken := echoShard(s, 1)
	broken.writeErr = errors.New("broken pipe")
	silent := echoShard(s, 2)
	silent.respond = func(Message) (Reply, bool) { return Reply{}, false }
	web := echoShard(s, 3)
	web.id, web.name = "web", "web"

	for _, c := range []*fakeShard{ok, broken, silent, web} {
		s.Hub().Register(c)
	}
	require.Len(t, s.Shards(), 3)

	replies := s.Broadcast(context.Background(), "economy:BALANCE", nil)
	require.Len(t, replies, 3)

	var succeeded int
	var reasons []string
	for _, r := range replies {
		if r.Success {
			succeeded++
			continue
		}
		assert.NotEmpty(t, r.ID)
		reasons = append(reasons, r.Error)
	}
	assert.Equal(t, 1, succeeded)
	require.Len(t, reasons, 2)
	assert.Contains(t, strings.Join(reasons, "\n"), "broken pipe")
	assert.Contains(t, strings.Join(reasons, "\n"), ErrTimeout.Error())
	assert.Empty(t, web.seen)
}

func TestServer_BroadcastOne(t *testing.T) {
	s := newTestServer(time.Second)

	reply := s.BroadcastOne(context.Background(), "dashboard:GET_BOT_GUILDS", nil)
	assert.False(t, reply.Success)
	assert.Nil(t, reply.Data)

	s0, s1 := echoShard(s, 0), echoShard(s, 1)
	s.Hub().Register(s0)
	s.Hub().Register(s1)

	reply = s.BroadcastOne(context.Background(), "dashboard:GET_BOT_GUILDS", nil)
	require.True(t, reply.Success)
	var from string
	require.NoError(t, reply.Decode(&from))
	assert.Equal(t, "shard-0", from)
	assert.Empty(t, s1.seen)
}

func TestServer_SendNonReceptive(t *testing.T) {
	s := newTestServer(time.Second)
	shard := echoShard(s, 0)
	shard.respond = func(Message) (Reply, bool) { return Reply{}, false }

	msg, err := NewMessage("dashboard:SET_LOCALE_BUNDLE", nil, false)
	require.NoError(t, err)
	reply, err := s.Send(context.Background(), shard, msg)
	require.NoError(t, err)
	assert.True(t, reply.Success)
}

func TestServer_SendTimeout(t *testing.T) {
	s := newTestServer(20 * time.Millisecond)
	shard := echoShard(s, 0)
	shard.respond = func(Message) (Reply, bool) { return Reply{}, false }

	msg, err := NewMessage("economy:BALANCE", nil, true)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), shard, msg)
	assert.ErrorIs(t, err, ErrTimeout)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestLoopback(t *testing.T) {
	port := freePort(t)
	cfg := conf.IpcConfig{
		Host:           "127.0.0.1",
		Port:           port,
		Path:           "/ipc",
		URL:            fmt.Sprintf("ws://127.0.0.1:%d/ipc", port),
		Shard:          "shard-0",
		RetryInterval:  50 * time.Millisecond,
		RequestTimeout: 2 * time.Second,
	}

	s := NewServer(cfg, nil)
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	router := NewRouter(nil)
	router.HandleControl("PING", func(_ context.Context, payload json.RawMessage) (any, error) {
		var n int
		if err := json.Unmarshal(payload, &n); err != nil {
			return nil, err
		}
		return n + 1, nil
	})
	client, err := NewClient(cfg, router)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()

	select {
	case <-client.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	require.Eventually(t, func() bool { return len(s.Shards()) == 1 }, 2*time.Second, 10*time.Millisecond)

	replies := s.Broadcast(context.Background(), "dashboard:PING", 41)
	require.Len(t, replies, 1)
	require.True(t, replies[0].Success)
	var got int
	require.NoError(t, replies[0].Decode(&got))
	assert.Equal(t, 42, got)

	reply := s.BroadcastOne(context.Background(), "music:PLAY", nil)
	assert.False(t, reply.Success)
	assert.Equal(t, "Handler not found", reply.Error)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
	assert.False(t, client.Connected())
}
