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

package ws

import (
	"sync"
)

// Hub tracks live connections in the order they registered.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
	order []string
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Register adds conn. Registering the same id twice is a no-op.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.ID()]; ok {
		return
	}
	h.conns[conn.ID()] = conn
	h.order = append(h.order, conn.ID())
}

// Unregister removes conn and reports whether it was present.
func (h *Hub) Unregister(conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.ID()]; !ok {
		return false
	}
	delete(h.conns, conn.ID())
	for i, id := range h.order {
		if id == conn.ID() {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the connection with the given id.
func (h *Hub) Get(id string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Conns returns a snapshot in registration order.
func (h *Hub) Conns() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Conn, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.conns[id])
	}
	return out
}

// First returns the oldest live connection.
func (h *Hub) First() (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.order) == 0 {
		return nil, false
	}
	return h.conns[h.order[0]], true
}

// SendTo writes one frame to the connection with the given id.
func (h *Hub) SendTo(id string, messageType int, data []byte) error {
	c, ok := h.Get(id)
	if !ok {
		return ErrConnNotFound
	}
	return c.WriteMessage(messageType, data)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes and forgets every connection.
func (h *Hub) CloseAll() {
	for _, c := range h.Conns() {
		h.Unregister(c)
		_ = c.Close()
	}
}
