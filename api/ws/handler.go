package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	mw "github.com/kasuganosora/rmmz-charselect/middleware"
	"go.uber.org/zap"
)

// leaseTTL bounds how long a dead connection can keep a save locked.
const leaseTTL = 2 * time.Minute

// Handler is the Gin handler for GET /ws.
type Handler struct {
	cache    cache.Cache
	sec      config.SecurityConfig
	sm       *player.SessionManager
	games    *host.Games
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	c cache.Cache,
	sec config.SecurityConfig,
	sm *player.SessionManager,
	games *host.Games,
	router *Router,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cache:  c,
		sec:    sec,
		sm:     sm,
		games:  games,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return mw.OriginAllowed(allowed, r.Header.Get("Origin"))
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt>.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	saveID := claims.SaveID

	// Another server process may be driving this save.
	owner := uuid.NewString()
	key := cache.LeaseKey(saveID)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	ok, err := cache.AcquireLease(ctx, h.cache, key, owner, leaseTTL)
	if err != nil {
		h.logger.Error("acquire save lease", zap.Int64("save_id", saveID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "save is in use"})
		return
	}

	g, err := h.games.Open(c.Request.Context(), saveID)
	if err != nil {
		_ = cache.ReleaseLease(context.Background(), h.cache, key, owner)
		if errors.Is(err, world.ErrSaveNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "save not found"})
			return
		}
		h.logger.Error("open save", zap.Int64("save_id", saveID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = cache.ReleaseLease(context.Background(), h.cache, key, owner)
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	sess := player.NewPlayerSession(saveID, conn, h.logger)
	h.sm.Register(sess)
	sess.SendJSON(0, TypeSceneState, g.View())
	h.readPump(sess, key, owner)
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(s *player.PlayerSession, key, owner string) {
	defer h.handleDisconnect(s, key, owner)

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		if err := h.cache.Expire(context.Background(), key, leaseTTL); err != nil {
			h.logger.Warn("renew save lease", zap.Int64("save_id", s.SaveID), zap.Error(err))
		}
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.Int64("save_id", s.SaveID),
					zap.Error(err))
			}
			return
		}
		s.SetReadDeadline()
		h.router.Dispatch(context.Background(), s, raw)
	}
}

// handleDisconnect saves the game and frees the save for other connections.
func (h *Handler) handleDisconnect(s *player.PlayerSession, key, owner string) {
	s.Close()
	h.sm.Unregister(s)

	// A newer connection for the same save keeps the game open.
	if h.sm.Get(s.SaveID) == nil {
		if err := h.games.Release(s.SaveID); err != nil {
			h.logger.Error("save on disconnect", zap.Int64("save_id", s.SaveID), zap.Error(err))
		}
	}
	if err := cache.ReleaseLease(context.Background(), h.cache, key, owner); err != nil {
		h.logger.Warn("release save lease", zap.Int64("save_id", s.SaveID), zap.Error(err))
	}
	h.logger.Info("player disconnected", zap.Int64("save_id", s.SaveID))
}
