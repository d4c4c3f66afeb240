// Package host runs the scene loop of open saves for the server and the
// terminal client.
package host

import (
	"context"
	"errors"
	"sync"

	"github.com/kasuganosora/rmmz-charselect/game/charselect"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	"github.com/kasuganosora/rmmz-charselect/plugin"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

var ErrNotOnTitle = errors.New("host: new game is only available on the title")

// Deps are shared by every game of a process.
type Deps struct {
	Hooks    *hook.HookCenter
	Commands *plugin.Registry
	Select   charselect.Config
	Scene    scene.Options
	Audio    scene.Audio
	Logger   *zap.Logger
}

// Game is the running scene loop of one save. All methods are safe for
// concurrent use; frames are serialized.
type Game struct {
	mu      sync.Mutex
	session *world.Session
	m       *scene.Manager
	deps    Deps
}

// New boots a game on the title scene.
func New(ctx context.Context, sess *world.Session, deps Deps) (*Game, error) {
	if deps.Hooks == nil {
		deps.Hooks = hook.NewHookCenter()
	}
	if deps.Commands == nil {
		deps.Commands = plugin.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	logger := deps.Logger.With(zap.Int64("save_id", sess.SaveID))
	m := scene.NewManager(sess, deps.Hooks, deps.Audio, logger, deps.Scene)
	charselect.Register(m, deps.Select)
	if err := m.Boot(ctx, scene.Title); err != nil {
		return nil, err
	}
	return &Game{session: sess, m: m, deps: deps}, nil
}

// Frame advances one frame with snap and returns what to draw.
func (g *Game) Frame(ctx context.Context, snap input.Snapshot) (scene.View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.m.Update(ctx, snap)
	return g.m.View(), err
}

// View returns the current frame without advancing.
func (g *Game) View() scene.View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.View()
}

// Command runs a plugin command against this game.
func (g *Game) Command(ctx context.Context, key string, args map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deps.Commands.Invoke(ctx, key, g.m, args)
}

// NewGame chooses "New Game" on the title.
func (g *Game) NewGame(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	title, ok := g.m.Current().(*scene.TitleScene)
	if !ok || g.m.IsSceneChanging() {
		return ErrNotOnTitle
	}
	title.Select(ctx, g.m, scene.CommandNewGame)
	return nil
}

// Scene returns the current scene name.
func (g *Game) Scene() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.CurrentName()
}

// Err returns the last scene error.
func (g *Game) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Err()
}

// Save writes the save to the database between frames, so a flush never
// sees a half-applied selection.
func (g *Game) Save() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Save()
}

// Session returns the save the game runs on.
func (g *Game) Session() *world.Session { return g.session }

// Games keeps one Game per open save.
type Games struct {
	store *world.Store
	deps  Deps

	mu    sync.Mutex
	games map[int64]*Game
}

// NewGames creates an empty registry over store.
func NewGames(store *world.Store, deps Deps) *Games {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Games{store: store, deps: deps, games: make(map[int64]*Game)}
}

// Open returns the game of a save, loading the save on first use.
func (gs *Games) Open(ctx context.Context, saveID int64) (*Game, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if g, ok := gs.games[saveID]; ok {
		return g, nil
	}
	sess, err := gs.store.Open(ctx, saveID)
	if err != nil {
		return nil, err
	}
	g, err := New(ctx, sess, gs.deps)
	if err != nil {
		return nil, err
	}
	gs.games[saveID] = g
	return g, nil
}

// Get returns an already open game.
func (gs *Games) Get(saveID int64) (*Game, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.games[saveID]
	return g, ok
}

// Release saves a game and drops it from memory.
func (gs *Games) Release(saveID int64) error {
	gs.mu.Lock()
	g, ok := gs.games[saveID]
	delete(gs.games, saveID)
	gs.mu.Unlock()
	if ok {
		g.mu.Lock()
		defer g.mu.Unlock()
	}
	return gs.store.Release(saveID)
}

// FlushAll saves every open save. Running games are saved under their own
// lock; sessions without a game are saved by the store. It keeps going
// after a failure and returns the first error.
func (gs *Games) FlushAll() error {
	gs.mu.Lock()
	games := make([]*Game, 0, len(gs.games))
	for _, g := range gs.games {
		games = append(games, g)
	}
	gs.mu.Unlock()

	var first error
	owned := make(map[int64]bool, len(games))
	for _, g := range games {
		owned[g.session.SaveID] = true
		if err := g.Save(); err != nil {
			gs.deps.Logger.Error("flush game", zap.Int64("save_id", g.session.SaveID), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	if err := gs.store.FlushExcept(owned); err != nil && first == nil {
		first = err
	}
	return first
}

// Count returns the number of open games.
func (gs *Games) Count() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.games)
}
