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

package log

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConf(t *testing.T) {
	conf := SetDefaults()

	assert.Equal(t, "stdout", conf.Output)
	assert.Equal(t, "INFO", conf.Level)
	assert.Equal(t, 7, conf.KeepHours)
	assert.Equal(t, "strange.log", conf.Filename)
}

func TestConf_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    *Conf
		wantErr bool
	}{
		{
			name:    "stdout",
			conf:    &Conf{Output: "stdout", Level: "INFO"},
			wantErr: false,
		},
		{
			name: "file",
			conf: &Conf{
				Output:     "file",
				Path:       "/tmp/logs",
				Level:      "DEBUG",
				KeepHours:  7,
				RotateSize: 100,
				RotateNum:  10,
			},
		},
		{
			name:    "file without path",
			conf:    &Conf{Output: "file", Level: "INFO"},
			wantErr: true,
		},
		{
			name: "file rotation defaults",
			conf: &Conf{Output: "file", Path: "/tmp/logs", Level: "INFO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.conf.Output == "file" {
				assert.Positive(t, tt.conf.RotateSize)
				assert.Positive(t, tt.conf.RotateNum)
				assert.Positive(t, tt.conf.KeepHours)
			}
		})
	}
}

func TestNewLog_File(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLog(&Conf{
		Output:     "file",
		Path:       dir,
		Filename:   "test.log",
		Level:      "INFO",
		KeepHours:  1,
		RotateSize: 1,
		RotateNum:  3,
	})
	require.NoError(t, err)

	logger.Info("plugin enabled")
	_ = logger.Sync()

	content, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "plugin enabled")
}

func TestCallerIsTheLoggingSite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(&Conf{Output: "file", Path: dir, Filename: "caller.log", Level: "INFO"}))

	Infow("from wrapper")
	With("plugin", "core").Info("from child")
	provided, err := ProvideLogger(&Conf{Output: "file", Path: dir, Filename: "caller.log", Level: "INFO"})
	require.NoError(t, err)
	provided.Log.Info("from provided")
	_ = Sync()

	content, err := os.ReadFile(filepath.Join(dir, "caller.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var checked int
	for _, line := range lines {
		if strings.Contains(line, "from ") {
			assert.Contains(t, line, "log/log_test.go", line)
			checked++
		}
	}
	assert.Equal(t, 3, checked)
}

func TestGetLogger_LazyDefault(t *testing.T) {
	mu.Lock()
	sugar = nil
	logger = nil
	mu.Unlock()
	once = sync.Once{}

	Infow("lazy", "plugin", "core")
	assert.NotNil(t, GetLogger())
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init(SetDefaults()))

	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, GetLevel())

	SetLevel("warn")
	assert.Equal(t, zapcore.WarnLevel, GetLevel())

	SetLevel("INFO")
}

func TestConcurrentLogging(t *testing.T) {
	require.NoError(t, Init(SetDefaults()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Infow("concurrent message", "number", n)
			Warnw("warn message", "number", n)
		}(i)
	}
	wg.Wait()
	assert.NoError(t, Sync())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"FATAL", zapcore.FatalLevel},
		{"INVALID", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
