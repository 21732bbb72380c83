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

// Package ipc carries commands between the dashboard and the bot shards.
// The dashboard listens on a websocket route; every shard dials in with its
// name and answers messages addressed as "<namespace>:<verb>".
package ipc

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/pkg/id"
)

// ControlNamespace is reserved for verbs the dashboard sends to the bot
// itself rather than to a plugin.
const ControlNamespace = "dashboard"

// Message is a request from the dashboard. Receptive messages expect a reply.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Receptive bool            `json:"receptive"`
}

// Reply answers a Message with the same ID.
type Reply struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// NewMessage encodes payload and assigns a fresh id.
func NewMessage(event string, payload any, receptive bool) (Message, error) {
	msg := Message{ID: id.GetUUIDWithoutDashes(), Event: event, Receptive: receptive}
	if payload != nil {
		raw, err := sonic.Marshal(payload)
		if err != nil {
			return Message{}, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// Event joins a namespace and a verb.
func Event(namespace, verb string) string {
	return namespace + ":" + verb
}

// SplitEvent splits "<namespace>:<verb>". Both parts must be non-empty.
func SplitEvent(event string) (namespace, verb string, ok bool) {
	namespace, verb, ok = strings.Cut(event, ":")
	if !ok || namespace == "" || verb == "" {
		return "", "", false
	}
	return namespace, verb, true
}

// OK builds a successful reply carrying data.
func OK(id string, data any) Reply {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return Fail(id, err.Error())
	}
	return Reply{ID: id, Success: true, Data: raw}
}

func Fail(id, msg string) Reply {
	return Reply{ID: id, Success: false, Error: msg}
}

// Decode unmarshals the reply data into v.
func (r Reply) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return sonic.Unmarshal(r.Data, v)
}

// DecodePayload unmarshals the message payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return sonic.Unmarshal(m.Payload, v)
}
