package charselect

import (
	"context"
	"fmt"

	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/plugin"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
)

const (
	PluginName  = "CharacterSelect"
	CommandOpen = "Open"

	hookName = "charselect"
)

// Register adds the selection screen to a manager.
func Register(m *scene.Manager, cfg Config) {
	m.Register(scene.CharacterSelect, NewFactory(cfg))
}

// InstallHooks sends new games to the selection screen until the
// selection switch is on, and fades the map in after a selection.
func InstallHooks(hc *hook.HookCenter, slots Slots) {
	if slots == (Slots{}) {
		slots = DefaultSlots()
	}
	hc.Register(hook.OnNewGame, 0, hookName, func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		ev, ok := data.(*scene.NewGameEvent)
		if !ok || ev.Manager == nil || ev.Manager.Session() == nil {
			return data, nil
		}
		if !ev.Manager.Session().State.GetSwitch(slots.SelectionSwitch) {
			ev.Next = scene.CharacterSelect
			ev.Push = true
		}
		return ev, nil
	})
	hc.Register(hook.OnSceneMapStart, 0, hookName, func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		if ev, ok := data.(*scene.MapStartEvent); ok && ev.Previous == scene.CharacterSelect {
			ev.FadeIn = true
		}
		return data, nil
	})
}

// RegisterCommands adds CharacterSelect.Open, which pushes the selection
// screen on the target manager.
func RegisterCommands(reg *plugin.Registry) {
	reg.Register(PluginName, CommandOpen, func(_ context.Context, target interface{}, _ map[string]string) error {
		m, ok := target.(*scene.Manager)
		if !ok || m == nil {
			return fmt.Errorf("charselect: %s needs a scene manager, got %T", plugin.Key(PluginName, CommandOpen), target)
		}
		m.Push(scene.CharacterSelect)
		return nil
	})
}
