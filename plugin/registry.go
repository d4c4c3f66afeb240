// Package plugin holds the plugin command registry. Commands are addressed
// as "<Plugin>.<Command>", e.g. "CharacterSelect.Open".
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownCommand = errors.New("plugin: unknown command")

// CommandFn runs a plugin command. target is whatever the host passes
// (the scene manager of the calling game); args are the command arguments.
type CommandFn func(ctx context.Context, target interface{}, args map[string]string) error

// Registry maps plugin commands to handlers.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]CommandFn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]CommandFn)}
}

// Key joins a plugin and command name.
func Key(pluginName, command string) string {
	return pluginName + "." + command
}

// Register adds or replaces a command handler.
func (r *Registry) Register(pluginName, command string, fn CommandFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[Key(pluginName, command)] = fn
}

// Invoke runs the command named by key.
func (r *Registry) Invoke(ctx context.Context, key string, target interface{}, args map[string]string) error {
	r.mu.RLock()
	fn, ok := r.commands[strings.TrimSpace(key)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, key)
	}
	return fn(ctx, target, args)
}

// Commands lists the registered command keys, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.commands))
	for k := range r.commands {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
