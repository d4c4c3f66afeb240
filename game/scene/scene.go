// Package scene runs the per-frame scene loop of a save: a scene stack with
// deferred changes, screen fades, and the title and map scenes.
package scene

import (
	"context"

	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/player"
)

// Scene names.
const (
	Title           = "title"
	Map             = "map"
	CharacterSelect = "character_select"
)

// Scene is one screen of the game. Start runs once the scene becomes
// current; Update runs once per frame while it stays current.
type Scene interface {
	Name() string
	Start(ctx context.Context, m *Manager) error
	Update(ctx context.Context, m *Manager, in *input.State)
	Terminate(m *Manager)
	View(m *Manager) []Node
}

// Factory builds a scene when it is about to become current.
type Factory func(m *Manager) (Scene, error)

// Cue is a system sound effect.
type Cue string

const (
	CueCursor Cue = "cursor"
	CueOK     Cue = "ok"
	CueCancel Cue = "cancel"
	CueBuzzer Cue = "buzzer"
)

// Audio plays system sound effects.
type Audio interface {
	Play(cue Cue)
}

type nopAudio struct{}

func (nopAudio) Play(Cue) {}

// NewGameEvent is the data of hook.OnNewGame. Handlers may redirect the
// new game by changing Next and Push.
type NewGameEvent struct {
	Manager *Manager
	Next    string
	Push    bool
}

// MapStartEvent is the data of hook.OnSceneMapStart. Handlers may force a
// fade-in by setting FadeIn.
type MapStartEvent struct {
	Manager  *Manager
	Previous string
	Transfer *player.Transfer
	FadeIn   bool
}
