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
	"errors"
	"fmt"
	"net"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/pkg/cron"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/safe"
	"github.com/go-strange/strange/pkg/ws"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const healthJob = "ipc-health-check"

var (
	ErrNoShards = errors.New("no shards connected")
	ErrTimeout  = errors.New("ipc request timed out")
)

// shard connections are named with a trailing shard number
var shardName = regexp.MustCompile(`\d+$`)

// Server is the dashboard end of the broker.
type Server struct {
	conf    conf.IpcConfig
	hub     *ws.Hub
	app     *fiber.App
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Reply

	listening atomic.Bool
	stopped   atomic.Bool
	addr      atomic.Value
}

func NewServer(c conf.IpcConfig, scheduler *cron.Cron) *Server {
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Server{
		conf:    c,
		hub:     ws.NewHub(),
		cron:    scheduler,
		timeout: timeout,
		pending: make(map[string]chan Reply),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "strange-ipc",
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})
	s.Mount(s.app)
	return s
}

// Mount serves the broker route on app.
func (s *Server) Mount(app fiber.Router) {
	path := s.conf.Path
	if path == "" {
		path = "/ipc"
	}
	app.Use(path, ws.Upgrade)
	app.Get(path, ws.Handle(s.hub, s))
}

// Start listens on the configured address and re-listens from a health
// check while the listener is down.
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	if s.cron == nil {
		return nil
	}
	interval := s.conf.HealthInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.healthCheck, healthJob)
}

func (s *Server) listen() error {
	ln, err := net.Listen("tcp", s.conf.Addr())
	if err != nil {
		return fmt.Errorf("ipc listen %s: %w", s.conf.Addr(), err)
	}
	s.listening.Store(true)
	s.addr.Store(ln.Addr().String())
	log.Infow("ipc server listening", "addr", ln.Addr().String())

	safe.Go(func() {
		err := s.app.Listener(ln)
		s.listening.Store(false)
		if !s.stopped.Load() {
			log.Errorw("ipc listener stopped", "error", err)
		}
	})
	return nil
}

func (s *Server) healthCheck() {
	if s.stopped.Load() || s.listening.Load() {
		return
	}
	if err := s.listen(); err != nil {
		log.Errorw("ipc server error", "error", err)
	}
}

// Stop closes every shard connection and the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.stopped.Store(true)
	if s.cron != nil {
		_ = s.cron.Remove(healthJob)
	}
	s.hub.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}

// Addr is the bound listen address, empty before Start.
func (s *Server) Addr() string {
	a, _ := s.addr.Load().(string)
	return a
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Shards returns the identified shard connections in connect order.
func (s *Server) Shards() []ws.Conn {
	var out []ws.Conn
	for _, c := range s.hub.Conns() {
		if shardName.MatchString(c.Name()) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) OnConnect(conn ws.Conn) error {
	metrics.IPCClients.Set(float64(s.hub.Count()))
	log.Infow("ipc client connected", "shard", conn.Name(), "remote", conn.RemoteAddr())
	return nil
}

func (s *Server) OnMessage(conn ws.Conn, messageType int, data []byte) error {
	if messageType != ws.TextMessage && messageType != ws.BinaryMessage {
		return nil
	}
	var reply Reply
	if err := sonic.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("decode reply from %s: %w", conn.Name(), err)
	}
	s.deliver(reply)
	return nil
}

func (s *Server) OnDisconnect(conn ws.Conn, err error) {
	metrics.IPCClients.Set(float64(s.hub.Count()))
	log.Warnw("ipc client disconnected", "shard", conn.Name(), "error", err)
}

func (s *Server) OnError(conn ws.Conn, err error) {
	log.Errorw("ipc client error", "shard", conn.Name(), "error", err)
}

func (s *Server) deliver(reply Reply) {
	s.mu.Lock()
	ch, ok := s.pending[reply.ID]
	s.mu.Unlock()
	if !ok {
		log.Debugw("ipc reply without pending request", "id", reply.ID)
		return
	}
	select {
	case ch <- reply:
	default:
	}
}

// Send delivers msg to one connection. A receptive message waits for the
// reply until ctx or the request timeout ends.
func (s *Server) Send(ctx context.Context, conn ws.Conn, msg Message) (reply Reply, err error) {
	defer func() { metrics.RecordIPC("out", msg.Event, err) }()

	data, err := sonic.Marshal(msg)
	if err != nil {
		return Reply{}, err
	}
	if !msg.Receptive {
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			return Reply{}, err
		}
		return Reply{ID: msg.ID, Success: true}, nil
	}

	ch := make(chan Reply, 1)
	s.mu.Lock()
	s.pending[msg.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		return Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	select {
	case reply = <-ch:
		return reply, nil
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("%w: %s to %s", ErrTimeout, msg.Event, conn.Name())
	}
}

// Broadcast sends event to every shard concurrently and returns one reply
// per shard in shard order. A shard that cannot be reached or times out gets
// a failed reply.
func (s *Server) Broadcast(ctx context.Context, event string, payload any) []Reply {
	start := time.Now()
	shards := s.Shards()
	if len(shards) == 0 {
		log.Warnw("no shards available for broadcast", "event", event)
		return nil
	}

	out := make([]Reply, len(shards))
	var g errgroup.Group
	for i, conn := range shards {
		g.Go(func() error {
			msg, err := NewMessage(event, payload, true)
			if err != nil {
				log.Errorw("failed to encode ipc message", "event", event, "error", err)
				out[i] = Fail("", err.Error())
				return nil
			}
			reply, err := s.Send(ctx, conn, msg)
			if err != nil {
				log.Errorw("failed to send ipc message", "event", event, "shard", conn.Name(), "error", err)
				out[i] = Fail(msg.ID, err.Error())
				return nil
			}
			out[i] = reply
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range out {
		if !r.Success {
			failed++
		}
	}
	log.Debugw("broadcast completed", "event", event, "shards", len(shards), "failed", failed, "duration", time.Since(start))
	return out
}

// BroadcastOne sends event to the oldest shard.
func (s *Server) BroadcastOne(ctx context.Context, event string, payload any) Reply {
	shards := s.Shards()
	if len(shards) == 0 {
		log.Warnw("no shards available for broadcast", "event", event)
		return Reply{Success: false}
	}
	msg, err := NewMessage(event, payload, true)
	if err != nil {
		return Fail("", err.Error())
	}
	reply, err := s.Send(ctx, shards[0], msg)
	if err != nil {
		log.Errorw("failed to send ipc message", "event", event, "shard", shards[0].Name(), "error", err)
		return Fail(msg.ID, err.Error())
	}
	return reply
}
