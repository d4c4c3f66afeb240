package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	mw "github.com/kasuganosora/rmmz-charselect/middleware"
	"github.com/kasuganosora/rmmz-charselect/model"
	"go.uber.org/zap"
)

const maxTitleLen = 64

// GameHandler creates saves and reports their state.
type GameHandler struct {
	store  *world.Store
	games  *host.Games
	audit  *audit.Service
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewGameHandler creates a GameHandler. auditSvc may be nil.
func NewGameHandler(store *world.Store, games *host.Games, auditSvc *audit.Service, sec config.SecurityConfig, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{store: store, games: games, audit: auditSvc, sec: sec, logger: logger}
}

type createRequest struct {
	Title string `json:"title"`
}

// Create starts a new save and returns a token for it.
// POST /api/games
func (h *GameHandler) Create(c *gin.Context) {
	start := time.Now()
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if len(req.Title) > maxTitleLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title too long"})
		return
	}
	if req.Title == "" {
		req.Title = "New Game"
	}

	sess, err := h.store.Create(c.Request.Context(), req.Title)
	if err != nil {
		h.logger.Error("create save", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	token, err := mw.GenerateToken(sess.SaveID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	resp := gin.H{"save_id": sess.SaveID, "title": req.Title, "token": token}
	if h.audit != nil {
		h.audit.Log(audit.Entry{
			TraceID:    mw.GetTraceID(c),
			SaveID:     sess.SaveID,
			Action:     audit.ActionSaveCreated,
			Request:    req,
			Response:   gin.H{"save_id": sess.SaveID},
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
	}
	c.JSON(http.StatusCreated, resp)
}

// GameDetail is the state of one save.
type GameDetail struct {
	world.Summary
	Scene   string           `json:"scene"`
	Error   string           `json:"error,omitempty"`
	History []model.AuditLog `json:"history,omitempty"`
}

// Detail returns the switches, variables, party and player of a save.
// GET /api/games/:id (Auth + SaveOwner)
func (h *GameHandler) Detail(c *gin.Context) {
	saveID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid save id"})
		return
	}
	ctx := c.Request.Context()
	g, err := h.games.Open(ctx, saveID)
	if errors.Is(err, world.ErrSaveNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "save not found"})
		return
	}
	if err != nil {
		h.logger.Error("open save", zap.Int64("save_id", saveID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	detail := GameDetail{Summary: g.Session().Summary(), Scene: g.Scene()}
	if err := g.Err(); err != nil {
		detail.Error = err.Error()
	}
	if h.audit != nil {
		limit, _ := strconv.Atoi(c.Query("history"))
		logs, err := h.audit.History(ctx, saveID, limit)
		if err != nil {
			h.logger.Warn("audit history", zap.Int64("save_id", saveID), zap.Error(err))
		}
		detail.History = logs
	}
	c.JSON(http.StatusOK, detail)
}
