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
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/internal/conf"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/loop"
	"github.com/go-strange/strange/pkg/metrics"
	"github.com/go-strange/strange/pkg/safe"
	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("ipc client not connected")

// Client is the shard end of the broker. It dials the dashboard, retries
// until connected and reconnects after a drop.
type Client struct {
	url      string
	name     string
	handler  Handler
	dialer   *websocket.Dialer
	interval time.Duration
	timeout  time.Duration

	writeMu sync.Mutex
	mu      sync.RWMutex
	conn    *websocket.Conn

	connected atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewClient dials c.URL with the shard name as the "name" query parameter.
func NewClient(c conf.IpcConfig, handler Handler) (*Client, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ipc url: %w", err)
	}
	if c.Shard == "" {
		return nil, errors.New("ipc shard name is required")
	}
	q := u.Query()
	q.Set("name", c.Shard)
	u.RawQuery = q.Encode()

	interval := c.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:      u.String(),
		name:     c.Shard,
		handler:  handler,
		dialer:   &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		interval: interval,
		timeout:  timeout,
		ready:    make(chan struct{}),
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Ready is closed after the first successful connect.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Run keeps a session open until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	l := loop.New(
		loop.WithInterval(c.interval),
		loop.WithOnError(func(err error, next time.Duration) {
			log.Debugw("ipc connect failed, retrying", "shard", c.name, "error", err, "next", next)
		}),
	)
	return l.Run(ctx, func(ctx context.Context) (bool, error) {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return true, nil
		}
		return false, err
	})
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.readyOnce.Do(func() { close(c.ready) })
	log.Infow("ipc connected", "shard", c.name)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		c.connected.Store(false)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warnw("ipc disconnected", "shard", c.name, "error", err)
			}
			return fmt.Errorf("ipc connection lost: %w", err)
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			log.Warnw("failed to decode ipc message", "shard", c.name, "error", err)
			continue
		}
		if msg.Event == "" {
			continue
		}
		safe.Go(func() { c.serve(ctx, msg) })
	}
}

func (c *Client) serve(ctx context.Context, msg Message) {
	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply := c.handler.Handle(hctx, msg)
	reply.ID = msg.ID
	var err error
	if !reply.Success {
		err = errors.New(reply.Error)
	}
	metrics.RecordIPC("in", msg.Event, err)

	if !msg.Receptive {
		return
	}
	if err := c.write(reply); err != nil {
		log.Warnw("failed to send ipc reply", "shard", c.name, "event", msg.Event, "error", err)
	}
}

func (c *Client) write(reply Reply) error {
	data, err := sonic.Marshal(reply)
	if err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
