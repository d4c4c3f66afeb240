package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/config"
)

const SaveIDKey = "save_id"

// Auth validates the save token. Browsers cannot set headers on WebSocket
// or EventSource requests, so a "token" query parameter is accepted too.
func Auth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(SaveIDKey, claims.SaveID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// SaveOwner rejects requests whose :id is not the token's save. Use after
// Auth.
func SaveOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid save id"})
			return
		}
		if id != GetSaveID(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another save"})
			return
		}
		c.Next()
	}
}

// GetSaveID retrieves the authenticated save ID from the Gin context.
func GetSaveID(c *gin.Context) int64 {
	if v, exists := c.Get(SaveIDKey); exists {
		return v.(int64)
	}
	return 0
}
