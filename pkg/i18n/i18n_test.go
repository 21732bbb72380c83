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

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBundles_Translate(t *testing.T) {
	b := New("en-US", "fr")
	b.Update("economy", "en-US", Resources{"BALANCE_DESC": "Show {{.User}}'s balance", "DAILY": "Daily reward"})
	b.Update("economy", "fr", Resources{"DAILY": "Récompense quotidienne"})

	tests := []struct {
		name string
		lang string
		key  string
		data map[string]string
		want string
	}{
		{name: "namespaced", lang: "fr", key: "economy:DAILY", want: "Récompense quotidienne"},
		{name: "bare key", lang: "en-US", key: "DAILY", want: "Daily reward"},
		{name: "fallback language", lang: "fr", key: "economy:BALANCE_DESC", data: map[string]string{"User": "ana"}, want: "Show ana's balance"},
		{name: "missing key", lang: "fr", key: "music:PLAY", want: "music:PLAY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Translate(tt.lang, tt.key, tt.data))
		})
	}
}

func TestBundles_UpdateMergesAndRemove(t *testing.T) {
	b := New()
	b.Update("music", "en-US", Resources{"PLAY": "Play"})
	b.Update("music", "en-US", Resources{"STOP": "Stop"})
	b.Update("music", "de", Resources{"PLAY": "Abspielen"})

	assert.Equal(t, Resources{"PLAY": "Play", "STOP": "Stop"}, b.Get("music", "en-US"))
	assert.Equal(t, []string{"en-US", "de"}, b.Languages())
	assert.Equal(t, map[string]string{"en-US": "Play", "de": "Abspielen"}, b.All("music:PLAY"))

	snap := b.Snapshot([]string{"music", "stats"})
	assert.Equal(t, "Abspielen", snap["music"]["de"]["PLAY"])
	assert.Empty(t, snap["stats"]["en-US"])

	b.Remove("music")
	assert.Empty(t, b.Get("music", "en-US"))
	assert.Equal(t, "PLAY", b.Tr("PLAY"))
}

func TestApplyTemplate_SimpleReplaceFallback(t *testing.T) {
	assert.Equal(t, "hi {{User}", applyTemplate("hi {{User}", map[string]string{"User": "x"}))
	assert.Equal(t, "hi x", simpleReplace("hi {{User}}", map[string]string{"User": "x"}))
}
