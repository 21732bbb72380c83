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

package bot

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-strange/strange/internal/plugin"
	"github.com/go-strange/strange/pkg/log"
)

// MaxContextMenus is the platform limit per context menu type.
const MaxContextMenus = 3

// CommandType selects the prefix or the slash registry.
type CommandType string

const (
	PrefixCommand CommandType = "prefix"
	SlashCommand  CommandType = "slash"
)

// Registered is a command together with the plugin that owns it.
type Registered struct {
	Plugin  string
	Command plugin.Command
}

type RegisteredMenu struct {
	Plugin string
	Menu   plugin.ContextMenu
}

// Summary counts the registered commands.
type Summary struct {
	PrefixCommands  int `json:"prefixCommands"`
	SlashCommands   int `json:"slashCommands"`
	ContextMenus    int `json:"contextMenus"`
	UserContexts    int `json:"userContexts"`
	MessageContexts int `json:"messageContexts"`
}

// PluginSummary is the per plugin count reported to the dashboard.
type PluginSummary struct {
	PrefixCount int `json:"prefixCount"`
	SlashCount  int `json:"slashCount"`
}

// CommandInfo describes one command to the dashboard.
type CommandInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

// CommandManager indexes the commands of the enabled plugins. Prefix
// commands are reachable by name and by lowercased alias.
type CommandManager struct {
	mu       sync.RWMutex
	prefix   map[string]*Registered
	slash    map[string]*Registered
	contexts map[string]*RegisteredMenu
}

func NewCommandManager() *CommandManager {
	return &CommandManager{
		prefix:   make(map[string]*Registered),
		slash:    make(map[string]*Registered),
		contexts: make(map[string]*RegisteredMenu),
	}
}

// RegisterPlugin adds the commands and context menus of p. Nothing is added
// when any name collides or a context menu limit would be exceeded.
func (m *CommandManager) RegisterPlugin(p *plugin.Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(p); err != nil {
		return err
	}

	for _, cmd := range p.Capabilities.Commands {
		r := &Registered{Plugin: p.Name, Command: cmd}
		if cmd.Prefix {
			m.prefix[strings.ToLower(cmd.Name)] = r
			for _, alias := range cmd.Aliases {
				m.prefix[strings.ToLower(alias)] = r
			}
		}
		if cmd.Slash {
			m.slash[cmd.Name] = r
		} else {
			log.Debugw("slash command disabled, skipping", "plugin", p.Name, "command", cmd.Name)
		}
	}
	for _, menu := range p.Capabilities.ContextMenus {
		m.contexts[menu.Name] = &RegisteredMenu{Plugin: p.Name, Menu: menu}
	}

	prefix, slash := countCommands(p)
	user, message := countMenus(p.Capabilities.ContextMenus)
	log.Debugw("plugin commands registered",
		"plugin", p.Name,
		"prefixCommands", prefix,
		"slashCommands", slash,
		"userContexts", user,
		"messageContexts", message,
	)
	return nil
}

func (m *CommandManager) check(p *plugin.Plugin) error {
	prefix := make(map[string]bool)
	slash := make(map[string]bool)
	takenPrefix := func(key string) bool {
		_, ok := m.prefix[key]
		return ok || prefix[key]
	}

	for _, cmd := range p.Capabilities.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("plugin %s has a command without a name", p.Name)
		}
		if cmd.Prefix {
			key := strings.ToLower(cmd.Name)
			if takenPrefix(key) {
				return fmt.Errorf("command %s already registered", cmd.Name)
			}
			prefix[key] = true
			for _, alias := range cmd.Aliases {
				key := strings.ToLower(alias)
				if takenPrefix(key) {
					return fmt.Errorf("alias %s already registered", alias)
				}
				prefix[key] = true
			}
		}
		if cmd.Slash {
			if _, ok := m.slash[cmd.Name]; ok || slash[cmd.Name] {
				return fmt.Errorf("slash command %s already registered", cmd.Name)
			}
			slash[cmd.Name] = true
		}
	}

	var user, message int
	for _, r := range m.contexts {
		switch r.Menu.Type {
		case plugin.ContextUser:
			user++
		case plugin.ContextMessage:
			message++
		}
	}
	addUser, addMessage := countMenus(p.Capabilities.ContextMenus)
	if user+addUser > MaxContextMenus {
		return fmt.Errorf("a maximum of %d USER contexts can be enabled", MaxContextMenus)
	}
	if message+addMessage > MaxContextMenus {
		return fmt.Errorf("a maximum of %d MESSAGE contexts can be enabled", MaxContextMenus)
	}

	menus := make(map[string]bool)
	for _, menu := range p.Capabilities.ContextMenus {
		if _, ok := m.contexts[menu.Name]; ok || menus[menu.Name] {
			return fmt.Errorf("context %s already registered", menu.Name)
		}
		menus[menu.Name] = true
	}
	return nil
}

// UnregisterPlugin drops everything registered by name.
func (m *CommandManager) UnregisterPlugin(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, r := range m.prefix {
		if r.Plugin == name {
			delete(m.prefix, key)
		}
	}
	for key, r := range m.slash {
		if r.Plugin == name {
			delete(m.slash, key)
		}
	}
	for key, r := range m.contexts {
		if r.Plugin == name {
			delete(m.contexts, key)
		}
	}
	log.Debugw("plugin commands unregistered", "plugin", name)
}

// FindPrefix looks a prefix command up by name or alias, ignoring case.
func (m *CommandManager) FindPrefix(name string) (*Registered, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.prefix[strings.ToLower(name)]
	return r, ok
}

func (m *CommandManager) FindSlash(name string) (*Registered, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.slash[name]
	return r, ok
}

func (m *CommandManager) FindContextMenu(name string) (*RegisteredMenu, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.contexts[name]
	return r, ok
}

// Summary counts distinct commands; aliases are not counted.
func (m *CommandManager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := make(map[*Registered]bool)
	for _, r := range m.prefix {
		prefix[r] = true
	}
	var s Summary
	s.PrefixCommands = len(prefix)
	s.SlashCommands = len(m.slash)
	s.ContextMenus = len(m.contexts)
	for _, r := range m.contexts {
		if r.Menu.Type == plugin.ContextUser {
			s.UserContexts++
		} else {
			s.MessageContexts++
		}
	}
	return s
}

// PluginCommands lists the commands of one plugin sorted by name. An empty
// typ returns both lists. translate maps description keys to text.
func (m *CommandManager) PluginCommands(name string, typ CommandType, translate func(string) string) map[CommandType][]CommandInfo {
	if translate == nil {
		translate = func(s string) string { return s }
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	collect := func(index map[string]*Registered, withAliases bool) []CommandInfo {
		seen := make(map[string]bool)
		out := []CommandInfo{}
		for _, r := range index {
			if r.Plugin != name || seen[r.Command.Name] {
				continue
			}
			seen[r.Command.Name] = true
			info := CommandInfo{Name: r.Command.Name, Description: translate(r.Command.Description)}
			if withAliases {
				info.Aliases = slices.Clone(r.Command.Aliases)
			}
			out = append(out, info)
		}
		slices.SortFunc(out, func(a, b CommandInfo) int { return strings.Compare(a.Name, b.Name) })
		return out
	}

	out := make(map[CommandType][]CommandInfo, 2)
	if typ == "" || typ == PrefixCommand {
		out[PrefixCommand] = collect(m.prefix, true)
	}
	if typ == "" || typ == SlashCommand {
		out[SlashCommand] = collect(m.slash, false)
	}
	return out
}

// Interactions builds the slash commands and context menus whose plugin
// passes active, sorted by name within each kind.
func (m *CommandManager) Interactions(active func(plugin string) bool, slash, contexts bool, translate func(string) string) []Interaction {
	if translate == nil {
		translate = func(s string) string { return s }
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cmds, menus []Interaction
	if slash {
		for _, r := range m.slash {
			if active(r.Plugin) {
				cmds = append(cmds, Interaction{
					Name:        r.Command.Name,
					Description: translate(r.Command.Description),
					Kind:        InteractionSlash,
				})
			}
		}
	}
	if contexts {
		for _, r := range m.contexts {
			if active(r.Plugin) {
				menus = append(menus, Interaction{Name: r.Menu.Name, Kind: menuKind(r.Menu.Type)})
			}
		}
	}
	byName := func(a, b Interaction) int { return strings.Compare(a.Name, b.Name) }
	slices.SortFunc(cmds, byName)
	slices.SortFunc(menus, byName)
	return append(cmds, menus...)
}

func menuKind(t plugin.ContextMenuType) InteractionKind {
	if t == plugin.ContextMessage {
		return InteractionMessage
	}
	return InteractionUser
}

func countCommands(p *plugin.Plugin) (prefix, slash int) {
	for _, cmd := range p.Capabilities.Commands {
		if cmd.Prefix {
			prefix++
		}
		if cmd.Slash {
			slash++
		}
	}
	return prefix, slash
}

func countMenus(menus []plugin.ContextMenu) (user, message int) {
	for _, menu := range menus {
		switch menu.Type {
		case plugin.ContextUser:
			user++
		case plugin.ContextMessage:
			message++
		}
	}
	return user, message
}
