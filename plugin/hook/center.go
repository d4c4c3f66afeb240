// Package hook lets plugins observe and redirect the selection flow.
//
// Handlers are keyed by event and name; data passed to Trigger is a
// pointer to an event struct the handlers may edit in place.
package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInterrupt signals that a Hook handler wants to stop further processing.
var ErrInterrupt = errors.New("hook interrupted")

// HookFn is a hook handler function.
// Returns (modified data, nil) to continue, or (data, ErrInterrupt) to stop.
type HookFn func(ctx context.Context, event string, data interface{}) (interface{}, error)

type hookEntry struct {
	priority int
	fn       HookFn
	name     string
}

// HookCenter manages event hook registrations.
type HookCenter struct {
	mu    sync.RWMutex
	hooks map[string][]*hookEntry
}

// NewHookCenter creates a new HookCenter.
func NewHookCenter() *HookCenter {
	return &HookCenter{hooks: make(map[string][]*hookEntry)}
}

// Register adds a HookFn for the given event with the given priority (lower runs first).
// name is used for Unregister. Registering a name again on the same event
// replaces the earlier handler.
func (hc *HookCenter) Register(event string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	entries := hc.hooks[event]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	entries = append(entries[:n], &hookEntry{priority: priority, fn: fn, name: name})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	hc.hooks[event] = entries
}

// Names returns the handler names registered for event, in run order.
func (hc *HookCenter) Names(event string) []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	out := make([]string, 0, len(hc.hooks[event]))
	for _, e := range hc.hooks[event] {
		out = append(out, e.name)
	}
	return out
}

// Unregister removes the handler called name from event.
func (hc *HookCenter) Unregister(event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	entries := hc.hooks[event]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	hc.hooks[event] = entries[:n]
}

// Trigger runs the handlers of event in priority order, threading data
// through them. A handler returning ErrInterrupt stops the chain and its
// data is returned with ErrInterrupt. Any other error or panic is
// collected, that handler's data is discarded, and the chain continues.
func (hc *HookCenter) Trigger(ctx context.Context, event string, data interface{}) (interface{}, error) {
	hc.mu.RLock()
	entries := make([]*hookEntry, len(hc.hooks[event]))
	copy(entries, hc.hooks[event])
	hc.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		out, err := e.call(ctx, event, data)
		switch {
		case errors.Is(err, ErrInterrupt):
			return out, err
		case err != nil:
			errs = append(errs, fmt.Errorf("hook %s/%s: %w", event, e.name, err))
		default:
			data = out
		}
	}
	return data, errors.Join(errs...)
}

func (e *hookEntry) call(ctx context.Context, event string, data interface{}) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = data, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ctx, event, data)
}

// ---- Hook event name constants ----

const (
	// OnNewGame runs when the title's "New Game" command is chosen, before
	// the new game is set up. Data: *scene.NewGameEvent.
	OnNewGame = "on_new_game"
	// OnSceneMapStart runs when the map scene starts, after any pending
	// transfer is performed. Data: *scene.MapStartEvent.
	OnSceneMapStart = "on_scene_map_start"
	// AfterCharacterSelected runs once a selection has been applied.
	// Data: *charselect.SelectedEvent.
	AfterCharacterSelected = "after_character_selected"
)
