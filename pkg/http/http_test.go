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
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_Health(t *testing.T) {
	app := NewApp(Http{AccessLog: true}, "test")

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestNewApp_ErrorEnvelope(t *testing.T) {
	app := NewApp(Http{}, "test")
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "plugin music is already enabled")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"code":409,"msg":"plugin music is already enabled","path":"/boom"}`, string(body))
}

func TestHttp_Addr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", Http{Host: "0.0.0.0", Port: 8080}.Addr())
}
