package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginAllowed reports whether origin is in allowed. An empty list allows
// every origin, as does a request without an Origin header.
func OriginAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// Origins rejects cross-origin requests from origins not in allowed.
func Origins(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !OriginAllowed(allowed, c.GetHeader("Origin")) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			return
		}
		c.Next()
	}
}
