package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/rmmz-charselect/app"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/config"
	dbadapter "github.com/kasuganosora/rmmz-charselect/db"
	"github.com/kasuganosora/rmmz-charselect/model"
	"github.com/kasuganosora/rmmz-charselect/resource"
	"go.uber.org/zap"
)

func main() {
	var (
		cfg *config.Config
		err error
	)
	if len(os.Args) > 1 {
		cfg, err = config.Load(os.Args[1])
	} else {
		cfg, err = config.Defaults()
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "change-me" {
		logger.Warn("security.jwt_secret is the built-in default; set it before exposing the server")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	defer pubsub.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- RMMZ project data ----
	res := resource.NewLoader(cfg.RPGMaker.DataPath, cfg.RPGMaker.ImgPath)
	if err := res.Load(); err != nil {
		logger.Warn("resource load warning", zap.Error(err))
	} else {
		logger.Info("RMMZ resources loaded", zap.Int("actors", len(res.Actors)))
	}

	cat, err := catalog.LoadOrDefault(cfg.Game.CatalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	logger.Info("character catalog loaded", zap.Int("characters", cat.Count()))

	srv, err := app.NewServer(app.Deps{
		Config:    cfg,
		DB:        db,
		Cache:     c,
		PubSub:    pubsub,
		Resources: res,
		Catalog:   cat,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("app start: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Engine}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("save on shutdown", zap.Error(err))
	}
}
