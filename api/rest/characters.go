package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"go.uber.org/zap"
)

// CharacterHandler serves the selectable character catalog.
type CharacterHandler struct {
	catalog *catalog.Catalog
	cache   cache.Cache
	logger  *zap.Logger
}

// NewCharacterHandler creates a CharacterHandler.
func NewCharacterHandler(cat *catalog.Catalog, c cache.Cache, logger *zap.Logger) *CharacterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CharacterHandler{catalog: cat, cache: c, logger: logger}
}

// CharacterEntry is one catalog row with its carousel position.
type CharacterEntry struct {
	Index int `json:"index"`
	catalog.CharacterRecord
}

// List returns the catalog in carousel order.
// GET /api/characters
func (h *CharacterHandler) List(c *gin.Context) {
	recs := h.catalog.All()
	out := make([]CharacterEntry, len(recs))
	for i, rec := range recs {
		out[i] = CharacterEntry{Index: i, CharacterRecord: rec}
	}
	c.JSON(http.StatusOK, gin.H{"characters": out})
}

// PickCount is how often one character was confirmed.
type PickCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Picks int64  `json:"picks"`
}

// Stats returns the confirmation count of every catalog character.
// GET /api/characters/stats
func (h *CharacterHandler) Stats(c *gin.Context) {
	counts, err := h.cache.HGetAll(c.Request.Context(), cache.PicksKey)
	if err != nil && !cache.IsNotFound(err) {
		h.logger.Error("read pick counts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	recs := h.catalog.All()
	out := make([]PickCount, len(recs))
	for i, rec := range recs {
		n, _ := strconv.ParseInt(counts[rec.ID], 10, 64)
		out[i] = PickCount{ID: rec.ID, Name: rec.Name, Picks: n}
	}
	c.JSON(http.StatusOK, gin.H{"stats": out})
}
