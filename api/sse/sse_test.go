package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeSSE_StreamsSelections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, ps := testutil.SetupTestCache(t)
	h := NewHandler(ps, nil)

	r := gin.New()
	r.GET("/sse", h.ServeSSE)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case line == "":
				if event != "" {
					return event, data
				}
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		return event, data
	}

	event, _ := readEvent()
	require.Equal(t, "connected", event)

	// The subscription is live once "connected" has been written.
	require.NoError(t, ps.Publish(ctx, cache.SelectionChannel, `{"character_id":"char_id_3"}`))
	event, data := readEvent()
	assert.Equal(t, "selection", event)
	assert.JSONEq(t, `{"character_id":"char_id_3"}`, data)
}
