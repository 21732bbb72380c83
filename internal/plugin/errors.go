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

package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPluginNotFound = errors.New("plugin not found in registry")
	ErrNotInstalled   = errors.New("plugin not installed")
	ErrAlreadyEnabled = errors.New("plugin already enabled")
	ErrNotEnabled     = errors.New("plugin not enabled")
	ErrCoreRequired   = errors.New("core plugin required")
	ErrPluginEnabled  = errors.New("plugin is enabled")
	ErrNoEntryPoint   = errors.New("plugin has no entry point")
	ErrLockTimeout    = errors.New("timed out waiting for lock")
)

// Error carries a readable message and matches its sentinel with errors.Is.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.err }

func newError(sentinel error, format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...), err: sentinel}
}

// MissingDependencyError lists the dependencies of Plugin that are not live.
type MissingDependencyError struct {
	Plugin  string
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependencies for %s: %s, install and enable them first",
		e.Plugin, strings.Join(e.Missing, ", "))
}

// DependentsError lists the enabled plugins that still need Plugin.
type DependentsError struct {
	Plugin     string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("cannot disable %s, it is required by: %s",
		e.Plugin, strings.Join(e.Dependents, ", "))
}
