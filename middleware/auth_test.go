package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSec = config.SecurityConfig{JWTSecret: "secret", JWTTTLH: time.Hour}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSec))
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, strconv.FormatInt(GetSaveID(c), 10))
	})
	r.GET("/games/:id", SaveOwner(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_Rejects(t *testing.T) {
	r := newProtectedRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, "/protected", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/protected", "Token abc123").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/protected", "Bearer notavalidtoken").Code)

	other, err := GenerateToken(5, "other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/protected", "Bearer "+other).Code)
}

func TestAuth_HeaderAndQuery(t *testing.T) {
	r := newProtectedRouter()
	tok, err := GenerateToken(42, testSec.JWTSecret, time.Hour)
	require.NoError(t, err)

	w := do(r, "/protected", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	w = do(r, "/protected?token="+tok, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestSaveOwner(t *testing.T) {
	r := newProtectedRouter()
	tok, err := GenerateToken(42, testSec.JWTSecret, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(r, "/games/42", "Bearer "+tok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/games/43", "Bearer "+tok).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "/games/abc", "Bearer "+tok).Code)
}

func TestGetSaveID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, int64(0), GetSaveID(c))
}
