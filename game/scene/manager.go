package scene

import (
	"context"
	"fmt"

	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

// Options are the screen and timing settings of a Manager.
type Options struct {
	GameTitle      string
	Width          int
	Height         int
	FadeSpeed      int // frames
	RepeatWait     int
	RepeatInterval int
}

func (o *Options) fill() {
	if o.Width <= 0 {
		o.Width = 816
	}
	if o.Height <= 0 {
		o.Height = 624
	}
	if o.FadeSpeed <= 0 {
		o.FadeSpeed = 24
	}
}

// Manager owns the current scene of one save and drives it frame by frame.
// It is not safe for concurrent use; callers serialize frames.
type Manager struct {
	session *world.Session
	hooks   *hook.HookCenter
	audio   Audio
	logger  *zap.Logger
	opts    Options
	input   *input.State

	factories map[string]Factory
	stack     []string
	current   Scene
	next      string
	previous  string

	fadeOpacity  int // 0 = clear, 255 = black
	fadeSign     int // +1 fading in, -1 fading out
	fadeDuration int

	frame int
	err   error
}

// NewManager creates a Manager for session. hooks and audio may be nil.
func NewManager(session *world.Session, hooks *hook.HookCenter, audio Audio, logger *zap.Logger, opts Options) *Manager {
	opts.fill()
	if hooks == nil {
		hooks = hook.NewHookCenter()
	}
	if audio == nil {
		audio = nopAudio{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		session:   session,
		hooks:     hooks,
		audio:     audio,
		logger:    logger,
		opts:      opts,
		input:     input.NewState(opts.RepeatWait, opts.RepeatInterval),
		factories: make(map[string]Factory),
	}
	m.Register(Title, NewTitleScene)
	m.Register(Map, NewMapScene)
	return m
}

// Register sets the factory of a scene name.
func (m *Manager) Register(name string, f Factory) { m.factories[name] = f }

func (m *Manager) Session() *world.Session { return m.session }
func (m *Manager) Hooks() *hook.HookCenter { return m.hooks }
func (m *Manager) Logger() *zap.Logger     { return m.logger }
func (m *Manager) Options() Options        { return m.opts }
func (m *Manager) Input() *input.State     { return m.input }
func (m *Manager) Frame() int              { return m.frame }
func (m *Manager) PlaySE(cue Cue)          { m.audio.Play(cue) }
func (m *Manager) Err() error              { return m.err }

// Current returns the current scene, or nil before Boot.
func (m *Manager) Current() Scene { return m.current }

// CurrentName returns the current scene's name.
func (m *Manager) CurrentName() string {
	if m.current == nil {
		return ""
	}
	return m.current.Name()
}

// Boot makes name the current scene immediately.
func (m *Manager) Boot(ctx context.Context, name string) error {
	m.next = name
	return m.changeScene(ctx)
}

// Goto requests a change to name. The change happens on a later frame,
// once the current scene is no longer fading.
func (m *Manager) Goto(name string) { m.next = name }

// Push remembers the current scene and goes to name.
func (m *Manager) Push(name string) {
	if m.current != nil {
		m.stack = append(m.stack, m.current.Name())
	}
	m.Goto(name)
}

// Pop returns to the last pushed scene, or the title if there is none.
func (m *Manager) Pop() {
	if n := len(m.stack); n > 0 {
		name := m.stack[n-1]
		m.stack = m.stack[:n-1]
		m.Goto(name)
		return
	}
	m.Goto(Title)
}

// ClearStack forgets all pushed scenes.
func (m *Manager) ClearStack() { m.stack = nil }

// Stack returns the pushed scene names, oldest first.
func (m *Manager) Stack() []string {
	out := make([]string, len(m.stack))
	copy(out, m.stack)
	return out
}

func (m *Manager) IsSceneChanging() bool        { return m.next != "" }
func (m *Manager) IsNextScene(name string) bool { return m.next == name }

// IsPreviousScene reports whether name was current before the current scene.
func (m *Manager) IsPreviousScene(name string) bool { return m.previous == name }

// ---- Fades ----

// FadeOutAll fades the screen to black over the fade speed.
func (m *Manager) FadeOutAll() { m.StartFadeOut(m.opts.FadeSpeed) }

// StartFadeOut fades the screen to black over duration frames.
func (m *Manager) StartFadeOut(duration int) {
	m.fadeSign = -1
	m.fadeDuration = max(duration, 1)
}

// StartFadeIn fades the screen in from black over duration frames.
func (m *Manager) StartFadeIn(duration int) {
	m.fadeSign = 1
	m.fadeDuration = max(duration, 1)
	m.fadeOpacity = 255
}

func (m *Manager) IsFading() bool   { return m.fadeDuration > 0 }
func (m *Manager) FadeOpacity() int { return m.fadeOpacity }

func (m *Manager) updateFade() {
	if m.fadeDuration <= 0 {
		return
	}
	d := m.fadeDuration
	if m.fadeSign > 0 {
		m.fadeOpacity -= m.fadeOpacity / d
	} else {
		m.fadeOpacity += (255 - m.fadeOpacity) / d
	}
	m.fadeDuration--
}

// ---- Frame loop ----

// Update runs one frame: sample input, advance fades, then either change
// scene or update the current one.
func (m *Manager) Update(ctx context.Context, snap input.Snapshot) error {
	m.frame++
	m.input.Update(snap)
	m.updateFade()
	if m.IsSceneChanging() && !m.IsFading() {
		return m.changeScene(ctx)
	}
	if m.current != nil {
		m.current.Update(ctx, m, m.input)
	}
	return nil
}

func (m *Manager) changeScene(ctx context.Context) error {
	name := m.next
	m.next = ""
	f, ok := m.factories[name]
	if !ok {
		m.err = fmt.Errorf("scene: %q not registered", name)
		m.logger.Error("scene change failed", zap.String("scene", name), zap.Error(m.err))
		return m.err
	}
	next, err := f(m)
	if err != nil {
		m.err = fmt.Errorf("scene: build %s: %w", name, err)
		m.logger.Error("scene change failed", zap.String("scene", name), zap.Error(err))
		return m.err
	}

	if m.current != nil {
		m.current.Terminate(m)
		m.previous = m.current.Name()
	}
	m.current = next
	m.fadeOpacity, m.fadeSign, m.fadeDuration = 0, 0, 0
	m.logger.Debug("scene changed", zap.String("from", m.previous), zap.String("to", name))

	if err := next.Start(ctx, m); err != nil {
		m.err = fmt.Errorf("scene: start %s: %w", name, err)
		m.logger.Error("scene start failed", zap.String("scene", name), zap.Error(err))
		return m.err
	}
	return nil
}

// View renders the current frame.
func (m *Manager) View() View {
	v := View{
		Scene:       m.CurrentName(),
		Frame:       m.frame,
		Width:       m.opts.Width,
		Height:      m.opts.Height,
		FadeOpacity: m.fadeOpacity,
	}
	if m.current != nil {
		v.Nodes = m.current.View(m)
	}
	return v
}
