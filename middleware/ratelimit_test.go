package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSet_Allow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name  string
		burst int
		keys  []string
		want  []bool
	}{
		{"burst then reject", 2, []string{"a", "a", "a"}, []bool{true, true, false}},
		{"separate buckets", 1, []string{"a", "b", "a", "b"}, []bool{true, true, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := &limiterSet{r: 0.001, b: tt.burst, clients: make(map[string]*clientLimiter)}
			for i, k := range tt.keys {
				assert.Equal(t, tt.want[i], set.allow(k, now), "call %d for %q", i, k)
			}
		})
	}
}

func TestLimiterSet_RefillsOverTime(t *testing.T) {
	set := &limiterSet{r: 1, b: 1, clients: make(map[string]*clientLimiter)}
	now := time.Unix(1_700_000_000, 0)
	require.True(t, set.allow("ip", now))
	assert.False(t, set.allow("ip", now.Add(100*time.Millisecond)))
	assert.True(t, set.allow("ip", now.Add(1100*time.Millisecond)))
}

func TestLimiterSet_SweepDropsIdle(t *testing.T) {
	set := &limiterSet{r: 1, b: 1, clients: make(map[string]*clientLimiter)}
	now := time.Unix(1_700_000_000, 0)
	set.allow("old", now)
	set.allow("fresh", now.Add(limiterIdle))

	set.sweep(now.Add(time.Minute))
	assert.NotContains(t, set.clients, "old")
	assert.Contains(t, set.clients, "fresh")
}

func TestRateLimit_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	eng := gin.New()
	eng.Use(RateLimit(0.001, 1))
	eng.GET("/api/characters", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/characters", nil)
		req.RemoteAddr = ip + ":40000"
		w := httptest.NewRecorder()
		eng.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code)
}
