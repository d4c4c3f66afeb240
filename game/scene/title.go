package scene

import (
	"context"
	"errors"

	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

const (
	CommandNewGame  = "new_game"
	CommandContinue = "continue"
)

type titleCommand struct {
	symbol  string
	label   string
	enabled bool
}

// TitleScene shows the game title and the New Game / Continue commands.
type TitleScene struct {
	commands []titleCommand
	cursor   int
	closed   bool
}

// NewTitleScene is the Factory of the title scene. Continue needs a player
// already placed on a map with a party; a new game abandoned before the
// map started does not count.
func NewTitleScene(m *Manager) (Scene, error) {
	canContinue := false
	if s := m.Session(); s != nil {
		mapID, _, _, _ := s.Player.Position()
		canContinue = mapID > 0 && len(s.Party.Members()) > 0
	}
	return &TitleScene{commands: []titleCommand{
		{symbol: CommandNewGame, label: "New Game", enabled: true},
		{symbol: CommandContinue, label: "Continue", enabled: canContinue},
	}}, nil
}

func (t *TitleScene) Name() string { return Title }

func (t *TitleScene) Start(_ context.Context, m *Manager) error {
	m.ClearStack()
	m.StartFadeIn(m.Options().FadeSpeed)
	return nil
}

func (t *TitleScene) Update(ctx context.Context, m *Manager, in *input.State) {
	if t.closed || m.IsSceneChanging() {
		return
	}
	switch {
	case in.IsRepeated(input.Down):
		t.cursor = (t.cursor + 1) % len(t.commands)
		m.PlaySE(CueCursor)
	case in.IsRepeated(input.Up):
		t.cursor = (t.cursor + len(t.commands) - 1) % len(t.commands)
		m.PlaySE(CueCursor)
	case in.IsTriggered(input.OK):
		t.Select(ctx, m, t.commands[t.cursor].symbol)
	}
}

// Select runs a title command as if it had been chosen with the cursor.
func (t *TitleScene) Select(ctx context.Context, m *Manager, symbol string) {
	for i, c := range t.commands {
		if c.symbol != symbol {
			continue
		}
		t.cursor = i
		if !c.enabled {
			m.PlaySE(CueBuzzer)
			return
		}
		m.PlaySE(CueOK)
		t.closed = true
		switch symbol {
		case CommandNewGame:
			t.commandNewGame(ctx, m)
		case CommandContinue:
			m.FadeOutAll()
			m.Goto(Map)
		}
		return
	}
}

// commandNewGame lets OnNewGame handlers pick the next scene, sets up the
// new game for it, then fades out.
func (t *TitleScene) commandNewGame(ctx context.Context, m *Manager) {
	ev := &NewGameEvent{Manager: m, Next: Map}
	if _, err := m.Hooks().Trigger(ctx, hook.OnNewGame, ev); errors.Is(err, hook.ErrInterrupt) {
		t.closed = false
		return
	} else if err != nil {
		m.Logger().Warn("new game hook failed", zap.Error(err))
	}
	if ev.Push {
		m.Push(ev.Next)
	} else {
		m.Goto(ev.Next)
	}
	if s := m.Session(); s != nil {
		if err := s.SetupNewGame(m.IsNextScene(CharacterSelect)); err != nil {
			m.Logger().Error("setup new game", zap.Error(err))
		}
	}
	m.FadeOutAll()
}

func (t *TitleScene) Terminate(*Manager) {}

func (t *TitleScene) View(m *Manager) []Node {
	o := m.Options()
	const cmdW, lineH = 240, 36
	win := Node{
		ID: "title_commands", Kind: KindWindow,
		X: (o.Width - cmdW) / 2, Y: o.Height - 160, W: cmdW, H: lineH*len(t.commands) + 24,
		Opacity: 255,
	}
	for i, c := range t.commands {
		n := Node{
			ID: "cmd_" + c.symbol, Kind: KindText,
			X: 0, Y: i * lineH, W: cmdW - 24, H: lineH,
			Text: c.label, Align: "center", Opacity: 255,
			Selected: i == t.cursor,
		}
		if !c.enabled {
			n.Opacity = 160
		}
		win.Children = append(win.Children, n)
	}
	return []Node{
		{ID: "title_background", Kind: KindRect, W: o.Width, H: o.Height, Color: "#000000", Opacity: 255},
		{ID: "game_title", Kind: KindText, Y: o.Height / 4, W: o.Width, H: 72,
			Text: o.GameTitle, Align: "center", FontSize: 72, Opacity: 255},
		win,
	}
}
