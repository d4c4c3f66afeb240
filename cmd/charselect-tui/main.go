// Command charselect-tui plays the title and character selection in a
// terminal against a local save database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kasuganosora/rmmz-charselect/app"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/config"
	dbadapter "github.com/kasuganosora/rmmz-charselect/db"
	"github.com/kasuganosora/rmmz-charselect/game/charselect"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/model"
	"github.com/kasuganosora/rmmz-charselect/plugin"
	"github.com/kasuganosora/rmmz-charselect/resource"
	"go.uber.org/zap"
)

const frameInterval = time.Second / 60

func main() {
	cfgPath := flag.String("config", "", "config file (defaults apply when empty)")
	saveID := flag.Int64("save", 0, "save to continue; 0 creates a new one")
	mute := flag.Bool("mute", false, "disable sound")
	flag.Parse()

	if err := run(*cfgPath, *saveID, *mute); err != nil {
		fmt.Fprintf(os.Stderr, "charselect-tui: %v\n", err)
		os.Exit(1)
	}
}

func newFileLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Server.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	zc.OutputPaths = []string{cfg.Log.File}
	zc.ErrorOutputPaths = []string{cfg.Log.File}
	return zc.Build()
}

func run(cfgPath string, saveID int64, mute bool) error {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.Defaults()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := newFileLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	res := resource.NewLoader(cfg.RPGMaker.DataPath, cfg.RPGMaker.ImgPath)
	if err := res.Load(); err != nil {
		logger.Warn("resource load warning", zap.Error(err))
	}
	cat, err := catalog.LoadOrDefault(cfg.Game.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	var audio scene.Audio
	if !mute {
		snd := newSound(logger)
		defer snd.Close()
		audio = snd
	}

	rt, err := app.NewRuntime(app.Deps{
		Config:    cfg,
		DB:        db,
		Resources: res,
		Catalog:   cat,
		Audio:     audio,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer rt.Close(ctx)

	if saveID == 0 {
		sess, err := rt.Store.Create(ctx, "Terminal")
		if err != nil {
			return err
		}
		saveID = sess.SaveID
	}
	g, err := rt.Games.Open(ctx, saveID)
	if err != nil {
		return fmt.Errorf("open save %d: %w", saveID, err)
	}
	defer rt.Games.Release(saveID)
	logger.Info("terminal session started", zap.Int64("save_id", saveID))

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	return loop(ctx, screen, g, logger)
}

func loop(ctx context.Context, screen tcell.Screen, g *host.Game, logger *zap.Logger) error {
	r := newRenderer(screen)
	keys := newCollector()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	r.Draw(g.View())
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return g.Save()
				}
				if ev.Key() == tcell.KeyRune && ev.Rune() == 'o' {
					key := plugin.Key(charselect.PluginName, charselect.CommandOpen)
					if err := g.Command(ctx, key, nil); err != nil {
						logger.Warn("plugin command failed", zap.String("command", key), zap.Error(err))
					}
					continue
				}
				keys.key(ev)
			case *tcell.EventMouse:
				keys.mouse(ev, r)
			case *tcell.EventResize:
				r.resize()
				screen.Sync()
			}

		case <-ticker.C:
			v, err := g.Frame(ctx, keys.snapshot())
			if err != nil {
				logger.Error("frame", zap.Error(err))
			}
			r.Draw(v)
		}
	}
}
