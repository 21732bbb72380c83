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

package http

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope of every admin API reply.
type Response struct {
	Code   int    `json:"code"`
	Detail any    `json:"detail,omitempty"`
	Msg    string `json:"msg"`
	Path   string `json:"path,omitempty"`
}

// WithRepJSON replies success with detail.
func WithRepJSON(c *fiber.Ctx, detail any) error {
	return c.JSON(Response{Code: Success.Code, Detail: detail, Msg: Success.Msg})
}

// WithRepNotDetail replies success without detail.
func WithRepNotDetail(c *fiber.Ctx) error {
	return c.JSON(Response{Code: Success.Code, Msg: Success.Msg})
}

// WithRepErr replies a failure carrying the request path.
func WithRepErr(c *fiber.Ctx, code int, msg string) error {
	return c.JSON(Response{Code: code, Msg: msg, Path: c.Path()})
}
