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

package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenUUID(t *testing.T) {
	assert.Len(t, GetUUID(), 36)
	assert.NotEqual(t, GetUUID(), GetUUID())
}

func TestGetUUIDWithoutDashes(t *testing.T) {
	assert.Len(t, GetUUIDWithoutDashes(), 32)
}

func TestGetULID_Monotonic(t *testing.T) {
	prev := GetULID()
	for i := 0; i < 100; i++ {
		next := GetULID()
		_, err := ulid.ParseStrict(next)
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}
}
