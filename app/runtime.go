// Package app wires the selection flow, persistence and transports
// together for the server and the terminal client.
package app

import (
	"context"
	"errors"

	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/charselect"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	"github.com/kasuganosora/rmmz-charselect/plugin"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"github.com/kasuganosora/rmmz-charselect/resource"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces a Runtime is built on. Cache and
// PubSub may be nil (the terminal client runs without them).
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Cache     cache.Cache
	PubSub    cache.PubSub
	Resources *resource.ResourceLoader
	Catalog   *catalog.Catalog
	Audio     scene.Audio
	Logger    *zap.Logger
}

// Runtime owns the game side: hooks, plugin commands, saves and the scene
// loops running on them.
type Runtime struct {
	Hooks    *hook.HookCenter
	Commands *plugin.Registry
	Store    *world.Store
	Games    *host.Games
	Audit    *audit.Service
	Recorder *host.Recorder
	Slots    charselect.Slots

	logger *zap.Logger
}

// NewRuntime validates the catalog against the project data and builds
// the game side.
func NewRuntime(d Deps) (*Runtime, error) {
	if d.Config == nil || d.DB == nil {
		return nil, errors.New("app: config and db are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := d.Resources
	if res == nil {
		res = resource.NewLoader("", "")
	}
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	var actors world.ActorDB
	if len(res.Actors) > 0 {
		actors = res
		if err := cat.ValidateActors(res); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no actor database loaded; catalog actors are not checked")
	}
	for _, w := range cat.ValidateAssets(res) {
		logger.Warn("catalog asset missing", zap.String("detail", w))
	}

	slots := SlotsFrom(d.Config.Game, res)
	if d.Config.Game.NonDefaultSlots() || slots != charselect.DefaultSlots() {
		logger.Warn("selection slots differ from the defaults; event scripts must use the same ids",
			zap.Int("switch", slots.SelectionSwitch),
			zap.Int("id_var", slots.CharacterIDVar),
			zap.Int("name_var", slots.CharacterNameVar))
	}

	hc := hook.NewHookCenter()
	charselect.InstallHooks(hc, slots)
	reg := plugin.NewRegistry()
	charselect.RegisterCommands(reg)

	auditSvc := audit.New(d.DB, logger)
	rec := &host.Recorder{Audit: auditSvc, Cache: d.Cache, PubSub: d.PubSub, Logger: logger}
	rec.Install(hc)

	store := world.NewStore(d.DB, actors, world.DefaultsFrom(res, d.Config.Game), logger)
	g := d.Config.Game
	title := ""
	if res.System != nil {
		title = res.System.GameTitle
	}
	games := host.NewGames(store, host.Deps{
		Hooks:    hc,
		Commands: reg,
		Select: charselect.Config{
			Catalog:    cat,
			Slots:      slots,
			Background: g.BackgroundImage,
			Loader:     resource.NewImageLoader(res, logger),
			Logger:     logger,
		},
		Scene: scene.Options{
			GameTitle:      title,
			Width:          g.ScreenWidth,
			Height:         g.ScreenHeight,
			FadeSpeed:      g.FadeSpeed,
			RepeatWait:     g.RepeatWait,
			RepeatInterval: g.RepeatInterval,
		},
		Audio:  d.Audio,
		Logger: logger,
	})

	return &Runtime{
		Hooks:    hc,
		Commands: reg,
		Store:    store,
		Games:    games,
		Audit:    auditSvc,
		Recorder: rec,
		Slots:    slots,
		logger:   logger,
	}, nil
}

// SlotsFrom takes the slot ids from the game config, overridden by the
// CharacterSelect entry of js/plugins.js when present.
func SlotsFrom(g config.GameConfig, res *resource.ResourceLoader) charselect.Slots {
	s := charselect.Slots{
		SelectionSwitch:  g.SelectionSwitchID,
		CharacterIDVar:   g.CharacterIDVarID,
		CharacterNameVar: g.CharacterNameVar,
	}
	def := charselect.DefaultSlots()
	if s.SelectionSwitch <= 0 {
		s.SelectionSwitch = def.SelectionSwitch
	}
	if s.CharacterIDVar <= 0 {
		s.CharacterIDVar = def.CharacterIDVar
	}
	if s.CharacterNameVar <= 0 {
		s.CharacterNameVar = def.CharacterNameVar
	}
	if res == nil || res.CharacterSelect == nil {
		return s
	}
	p := res.CharacterSelect
	if p.SelectionSwitchID > 0 {
		s.SelectionSwitch = p.SelectionSwitchID
	}
	if p.CharacterIDVarID > 0 {
		s.CharacterIDVar = p.CharacterIDVarID
	}
	if p.CharacterNameVar > 0 {
		s.CharacterNameVar = p.CharacterNameVar
	}
	return s
}

// Close saves every open game and drains the audit queue.
func (rt *Runtime) Close(ctx context.Context) error {
	err := rt.Games.FlushAll()
	if cerr := rt.Store.Close(); err == nil {
		err = cerr
	}
	rt.Audit.Stop(ctx)
	return err
}
