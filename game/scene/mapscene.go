package scene

import (
	"context"
	"fmt"

	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

// tileSize is the RMMZ tile size in pixels.
const tileSize = 48

// MapScene performs the pending transfer and shows where the player is.
// Map rendering and movement belong to the map engine.
type MapScene struct {
	transfer *player.Transfer
}

// NewMapScene is the Factory of the map scene.
func NewMapScene(*Manager) (Scene, error) { return &MapScene{}, nil }

func (s *MapScene) Name() string { return Map }

func (s *MapScene) Start(ctx context.Context, m *Manager) error {
	m.ClearStack()
	ev := &MapStartEvent{Manager: m, Previous: m.previous}
	if sess := m.Session(); sess != nil {
		if t, ok := sess.Player.PerformTransfer(); ok {
			s.transfer = &t
			ev.Transfer = &t
			ev.FadeIn = t.Fade != player.FadeNone
		}
	}
	if _, err := m.Hooks().Trigger(ctx, hook.OnSceneMapStart, ev); err != nil {
		m.Logger().Warn("map start hook failed", zap.Error(err))
	}
	if ev.FadeIn {
		m.StartFadeIn(m.Options().FadeSpeed)
	}
	if sess := m.Session(); sess != nil {
		if err := sess.Save(); err != nil {
			m.Logger().Warn("autosave on map start failed", zap.Error(err))
		}
	}
	return nil
}

// Transfer returns the transfer performed when the scene started, if any.
func (s *MapScene) Transfer() (player.Transfer, bool) {
	if s.transfer == nil {
		return player.Transfer{}, false
	}
	return *s.transfer, true
}

func (s *MapScene) Update(context.Context, *Manager, *input.State) {}

func (s *MapScene) Terminate(*Manager) {}

func (s *MapScene) View(m *Manager) []Node {
	o := m.Options()
	nodes := []Node{{ID: "map_background", Kind: KindRect, W: o.Width, H: o.Height, Color: "#203020", Opacity: 255}}
	sess := m.Session()
	if sess == nil {
		return nodes
	}
	mapID, x, y, _ := sess.Player.Position()
	name, index := sess.Player.Appearance()
	nodes = append(nodes,
		Node{ID: "map_label", Kind: KindText, X: 8, Y: 8, W: o.Width - 16, H: 36,
			Text: fmt.Sprintf("Map %03d (%d,%d)", mapID, x, y), Opacity: 255},
		Node{ID: "player", Kind: KindSprite,
			X: o.Width/2 - tileSize/2, Y: o.Height/2 - tileSize/2, W: tileSize, H: tileSize,
			Image: name, Index: index, Opacity: 255},
	)
	return nodes
}
