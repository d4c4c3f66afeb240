package scene

import (
	"context"
	"testing"

	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordAudio struct{ cues []Cue }

func (r *recordAudio) Play(c Cue) { r.cues = append(r.cues, c) }

// stubScene records its lifecycle.
type stubScene struct {
	name    string
	started int
	updates int
	ended   int
}

func (s *stubScene) Name() string                                   { return s.name }
func (s *stubScene) Start(context.Context, *Manager) error          { s.started++; return nil }
func (s *stubScene) Update(context.Context, *Manager, *input.State) { s.updates++ }
func (s *stubScene) Terminate(*Manager)                             { s.ended++ }
func (s *stubScene) View(*Manager) []Node                           { return []Node{{ID: s.name}} }

func stubFactory(s *stubScene) Factory {
	return func(*Manager) (Scene, error) { return s, nil }
}

func newSession() *world.Session {
	return world.NewSession(1, nil, nil, world.Defaults{Party: []int{1}, StartMapID: 1, StartX: 8, StartY: 6}, nil)
}

func newManager(t *testing.T, hc *hook.HookCenter) (*Manager, *recordAudio) {
	t.Helper()
	audio := &recordAudio{}
	m := NewManager(newSession(), hc, audio, nil, Options{FadeSpeed: 4, GameTitle: "Test"})
	return m, audio
}

func idle() input.Snapshot { return input.Snapshot{} }

func press(a input.Action) input.Snapshot { return input.Snapshot{Pressed: []input.Action{a}} }

// run advances n idle frames.
func run(t *testing.T, m *Manager, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.Update(context.Background(), idle()))
	}
}

func TestManager_GotoIsDeferredUntilFadeEnds(t *testing.T) {
	m, _ := newManager(t, nil)
	a, b := &stubScene{name: "a"}, &stubScene{name: "b"}
	m.Register("a", stubFactory(a))
	m.Register("b", stubFactory(b))
	require.NoError(t, m.Boot(context.Background(), "a"))
	assert.Equal(t, 1, a.started)

	m.FadeOutAll()
	m.Goto("b")
	assert.True(t, m.IsSceneChanging())
	assert.True(t, m.IsNextScene("b"))

	run(t, m, 4) // fade frames
	assert.Equal(t, "a", m.CurrentName())
	assert.Equal(t, 255, m.FadeOpacity())

	run(t, m, 1)
	assert.Equal(t, "b", m.CurrentName())
	assert.Equal(t, 1, a.ended)
	assert.Equal(t, 1, b.started)
	assert.True(t, m.IsPreviousScene("a"))
	assert.False(t, m.IsSceneChanging())
	assert.Equal(t, 0, m.FadeOpacity(), "new scene starts unfaded")
}

func TestManager_PushPop(t *testing.T) {
	m, _ := newManager(t, nil)
	a, b := &stubScene{name: "a"}, &stubScene{name: "b"}
	m.Register("a", stubFactory(a))
	m.Register("b", stubFactory(b))
	require.NoError(t, m.Boot(context.Background(), "a"))

	m.Push("b")
	run(t, m, 1)
	assert.Equal(t, "b", m.CurrentName())
	assert.Equal(t, []string{"a"}, m.Stack())

	m.Pop()
	run(t, m, 1)
	assert.Equal(t, "a", m.CurrentName())
	assert.Empty(t, m.Stack())

	m.Pop()
	assert.True(t, m.IsNextScene(Title))
}

func TestManager_UnknownScene(t *testing.T) {
	m, _ := newManager(t, nil)
	err := m.Boot(context.Background(), "nowhere")
	assert.Error(t, err)
	assert.Error(t, m.Err())
}

func TestManager_FadeIn(t *testing.T) {
	m, _ := newManager(t, nil)
	m.StartFadeIn(4)
	assert.Equal(t, 255, m.FadeOpacity())
	assert.True(t, m.IsFading())
	run(t, m, 4)
	assert.Equal(t, 0, m.FadeOpacity())
	assert.False(t, m.IsFading())
}

func TestTitle_NewGameGoesToMap(t *testing.T) {
	m, audio := newManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.Boot(ctx, Title))
	run(t, m, 4) // title fade-in

	require.NoError(t, m.Update(ctx, press(input.OK)))
	assert.True(t, m.IsNextScene(Map))
	assert.Equal(t, []Cue{CueOK}, audio.cues)
	assert.Equal(t, []int{1}, m.Session().Party.Members(), "starting party set up")

	run(t, m, 5)
	assert.Equal(t, Map, m.CurrentName())
	mapID, x, y, _ := m.Session().Player.Position()
	assert.Equal(t, []int{1, 8, 6}, []int{mapID, x, y})
	assert.True(t, m.IsFading(), "transfer fades the map in")
}

func TestTitle_HookRedirectsNewGame(t *testing.T) {
	hc := hook.NewHookCenter()
	hc.Register(hook.OnNewGame, 0, "redirect", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		ev := d.(*NewGameEvent)
		ev.Next, ev.Push = "elsewhere", true
		return d, nil
	})
	m, _ := newManager(t, hc)
	other := &stubScene{name: "elsewhere"}
	m.Register("elsewhere", stubFactory(other))
	ctx := context.Background()
	require.NoError(t, m.Boot(ctx, Title))

	title := m.Current().(*TitleScene)
	title.Select(ctx, m, CommandNewGame)
	run(t, m, 5)
	assert.Equal(t, "elsewhere", m.CurrentName())
	assert.Equal(t, []string{Title}, m.Stack())
}

func TestTitle_InterruptCancelsNewGame(t *testing.T) {
	hc := hook.NewHookCenter()
	hc.Register(hook.OnNewGame, 0, "veto", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		return d, hook.ErrInterrupt
	})
	m, _ := newManager(t, hc)
	ctx := context.Background()
	require.NoError(t, m.Boot(ctx, Title))
	m.Current().(*TitleScene).Select(ctx, m, CommandNewGame)
	assert.False(t, m.IsSceneChanging())
}

func TestTitle_CursorAndDisabledContinue(t *testing.T) {
	m, audio := newManager(t, nil)
	ctx := context.Background()
	require.NoError(t, m.Boot(ctx, Title))

	require.NoError(t, m.Update(ctx, press(input.Down)))
	require.NoError(t, m.Update(ctx, idle()))
	require.NoError(t, m.Update(ctx, press(input.OK)))
	assert.Equal(t, []Cue{CueCursor, CueBuzzer}, audio.cues)
	assert.False(t, m.IsSceneChanging())

	nodes := m.View().Nodes
	require.Len(t, nodes, 3)
	assert.True(t, nodes[2].Children[1].Selected)
}

func TestMap_HookForcesFadeIn(t *testing.T) {
	hc := hook.NewHookCenter()
	var seen *MapStartEvent
	hc.Register(hook.OnSceneMapStart, 0, "force", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		seen = d.(*MapStartEvent)
		seen.FadeIn = true
		return d, nil
	})
	m, _ := newManager(t, hc)
	ctx := context.Background()
	require.NoError(t, m.Session().Player.ReserveTransfer(3, 1, 2, player.DirLeft, player.FadeNone))

	require.NoError(t, m.Boot(ctx, Map))
	require.NotNil(t, seen)
	require.NotNil(t, seen.Transfer)
	assert.Equal(t, 3, seen.Transfer.MapID)
	assert.True(t, m.IsFading())

	tr, ok := m.Current().(*MapScene).Transfer()
	require.True(t, ok)
	assert.Equal(t, player.DirLeft, tr.Direction)
	assert.False(t, m.Session().Player.IsTransferring())
}

func TestMap_NoTransferNoFade(t *testing.T) {
	m, _ := newManager(t, nil)
	require.NoError(t, m.Boot(context.Background(), Map))
	assert.False(t, m.IsFading())
	_, ok := m.Current().(*MapScene).Transfer()
	assert.False(t, ok)
	assert.Equal(t, "player", m.View().Nodes[2].ID)
}
