package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/rmmz-charselect/api/rest"
	"github.com/kasuganosora/rmmz-charselect/api/sse"
	apiws "github.com/kasuganosora/rmmz-charselect/api/ws"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	mw "github.com/kasuganosora/rmmz-charselect/middleware"
	"github.com/kasuganosora/rmmz-charselect/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP side: REST, WebSocket and SSE on one gin engine.
type Server struct {
	Runtime   *Runtime
	Engine    *gin.Engine
	Sessions  *player.SessionManager
	Scheduler *scheduler.Scheduler

	deps   Deps
	logger *zap.Logger
	stop   context.CancelFunc
}

// NewServer builds the runtime and registers every route. Deps.Cache and
// Deps.PubSub are required here.
func NewServer(d Deps) (*Server, error) {
	rt, err := NewRuntime(d)
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	s := &Server{
		Runtime:   rt,
		Sessions:  player.NewSessionManager(logger),
		Scheduler: scheduler.New(logger),
		deps:      d,
		logger:    logger,
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", s.health)

	charH := apirest.NewCharacterHandler(cat, d.Cache, logger)
	gameH := apirest.NewGameHandler(rt.Store, rt.Games, rt.Audit, cfg.Security, logger)

	api := r.Group("/api")
	{
		api.GET("/characters", charH.List)
		api.GET("/characters/stats", charH.Stats)

		gamesG := api.Group("/games")
		gamesG.POST("", gameH.Create)
		gamesG.GET("/:id", mw.Auth(cfg.Security), mw.SaveOwner(), gameH.Detail)
	}

	// ---- WebSocket ----
	wsRouter := apiws.NewRouter(logger)
	apiws.NewGameHandlers(rt.Games, rt.Audit, logger).RegisterHandlers(wsRouter)
	wsH := apiws.NewHandler(d.Cache, cfg.Security, s.Sessions, rt.Games, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	sseH := sse.NewHandler(d.PubSub, logger)
	r.GET("/sse", mw.Origins(cfg.Security.AllowedOrigins), sseH.ServeSSE)

	// ---- RMMZ game files (browser client) ----
	if dir := cfg.Server.GameDir; dir != "" {
		r.StaticFile("/", filepath.Join(dir, "index.html"))
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
			if _, err := os.Stat(path); err == nil {
				c.File(path)
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
		logger.Info("serving RMMZ game files", zap.String("dir", dir))
	}

	s.Engine = r
	return s, nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"games":    s.Runtime.Games.Count(),
		"sessions": s.Sessions.Count(),
		"tasks":    s.Scheduler.ListTickers(),
	})
}

// Start registers the periodic tasks and relays confirmed selections to
// every connected client.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, unsub, err := s.deps.PubSub.Subscribe(ctx, cache.SelectionChannel)
	if err != nil {
		cancel()
		return err
	}
	s.stop = func() {
		unsub()
		cancel()
	}
	go func() {
		for msg := range msgs {
			s.Sessions.BroadcastToAll(&player.Packet{Type: "selection", Payload: json.RawMessage(msg.Payload)})
		}
	}()

	interval := time.Duration(s.deps.Config.Game.FlushIntervalS) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s.Scheduler.AddTicker("state_flush", interval, func(context.Context) error {
		return s.Runtime.Games.FlushAll()
	})
	return nil
}

// Shutdown disconnects every client, stops the tasks and saves all games.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	s.Sessions.CloseAllSessions()
	s.Scheduler.Stop()
	return s.Runtime.Close(ctx)
}
