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

// Conn is one live websocket peer.
type Conn interface {
	// ID is unique per connection
	ID() string
	// Name is the peer supplied identity, empty when none was given
	Name() string
	WriteMessage(messageType int, data []byte) error
	Close() error
	RemoteAddr() string
}

// Handler receives connection lifecycle callbacks.
type Handler interface {
	OnConnect(conn Conn) error
	OnMessage(conn Conn, messageType int, data []byte) error
	OnDisconnect(conn Conn, err error)
	OnError(conn Conn, err error)
}

// Websocket frame types, matching RFC 6455 opcodes.
const (
	TextMessage   = 1
	BinaryMessage = 2
	CloseMessage  = 8
	PingMessage   = 9
	PongMessage   = 10
)
