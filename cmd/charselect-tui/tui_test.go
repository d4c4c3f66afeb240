package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/game/textcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(cols, rows)
	t.Cleanup(s.Fini)
	return s
}

func screenText(s tcell.SimulationScreen) []string {
	cells, w, h := s.GetContents()
	lines := make([]string, h)
	for y := 0; y < h; y++ {
		var b strings.Builder
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(c.Runes[0])
		}
		lines[y] = b.String()
	}
	return lines
}

func TestRenderer_DrawsTextAndStatus(t *testing.T) {
	s := simScreen(t, 80, 24)
	r := newRenderer(s)

	r.Draw(scene.View{
		Scene: scene.CharacterSelect, Frame: 7, Width: 800, Height: 240,
		Nodes: []scene.Node{
			{ID: "choice_0", Kind: scene.KindPicture, X: 0, Y: 0, W: 200, H: 100, Image: "Hero", Opacity: 255, Selected: true},
			{ID: "description", Kind: scene.KindWindow, X: 0, Y: 120, W: 800, H: 100, Children: []scene.Node{
				{ID: "description_name", Kind: scene.KindText, W: 800, H: 40, Text: "Character One", Align: "center", Opacity: 255},
			}},
		},
	})

	all := strings.Join(screenText(s), "\n")
	assert.Contains(t, all, "Hero")
	assert.Contains(t, all, "Character One")
	assert.Contains(t, all, "character_select")
	assert.Contains(t, all, "frame 7")

	cells, w, _ := s.GetContents()
	assert.Equal(t, '┌', cells[0*w+0].Runes[0])
}

func TestRenderer_SkipsTransparentNodes(t *testing.T) {
	s := simScreen(t, 40, 10)
	r := newRenderer(s)
	r.Draw(scene.View{Width: 400, Height: 100, Nodes: []scene.Node{
		{ID: "hidden", Kind: scene.KindText, W: 400, H: 20, Text: "invisible", Opacity: 0},
	}})
	assert.NotContains(t, strings.Join(screenText(s), "\n"), "invisible")
}

func TestRenderer_RunsWrap(t *testing.T) {
	s := simScreen(t, 20, 10)
	r := newRenderer(s)
	r.runs(0, 0, 5, []textcode.Run{{Text: "abcdefg"}, {Text: "\nxy", Color: 2}})
	s.Show()

	lines := screenText(s)
	assert.Equal(t, "abcde", lines[0][:5])
	assert.Equal(t, "fg", lines[1][:2])
	assert.Equal(t, "xy", lines[2][:2])
}

func TestRenderer_PixelRoundTrip(t *testing.T) {
	s := simScreen(t, 80, 24)
	r := newRenderer(s)
	r.width, r.height = 816, 624

	px, py := r.pixel(40, 12)
	assert.Equal(t, 40, r.cellX(px))
	assert.Equal(t, 12, r.cellY(py))
}

func TestCollector_Snapshot(t *testing.T) {
	c := newCollector()
	assert.True(t, c.key(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone)))
	assert.True(t, c.key(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)))
	assert.False(t, c.key(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone)))

	snap := c.snapshot()
	assert.Equal(t, []input.Action{input.Right, input.OK}, snap.Pressed)
	assert.Empty(t, c.snapshot().Pressed, "presses last one frame")
}

func TestCollector_Mouse(t *testing.T) {
	s := simScreen(t, 80, 24)
	r := newRenderer(s)
	r.width, r.height = 800, 240

	c := newCollector()
	c.mouse(tcell.NewEventMouse(10, 5, tcell.Button1, tcell.ModNone), r)
	snap := c.snapshot()
	assert.True(t, snap.PointerDown)
	assert.Equal(t, 105, snap.PointerX)
	assert.Equal(t, 55, snap.PointerY)

	c.mouse(tcell.NewEventMouse(10, 5, tcell.ButtonNone, tcell.ModNone), r)
	assert.False(t, c.snapshot().PointerDown)
}

func TestCueTones(t *testing.T) {
	for _, cue := range []scene.Cue{scene.CueCursor, scene.CueOK, scene.CueCancel, scene.CueBuzzer} {
		tn, ok := cueTones[cue]
		require.True(t, ok, cue)
		st, err := tn.streamer()
		require.NoError(t, err)
		require.NotNil(t, st)
	}
}
