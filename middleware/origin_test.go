package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	assert.True(t, OriginAllowed(nil, "http://evil.example"))
	assert.True(t, OriginAllowed([]string{"http://game.example"}, ""))
	assert.True(t, OriginAllowed([]string{"http://game.example"}, "HTTP://GAME.EXAMPLE"))
	assert.True(t, OriginAllowed([]string{"*"}, "http://any.example"))
	assert.False(t, OriginAllowed([]string{"http://game.example"}, "http://evil.example"))
}

func TestOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Origins([]string{"http://game.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for origin, want := range map[string]int{
		"http://game.example": http.StatusOK,
		"http://evil.example": http.StatusForbidden,
		"":                    http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, origin)
	}
}
