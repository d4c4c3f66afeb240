package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/rmmz-charselect/app"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server wired the same way as main.go.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	App    *app.Server
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	WSURL  string // ws://127.0.0.1:<port>/ws
	Config *config.Config
}

// NewTestServer creates a fully wired server with the bundled catalog and
// no RMMZ project data.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Server.Debug = true
	cfg.Game.FadeSpeed = 2
	cfg.Security = config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	srv, err := app.NewServer(app.Deps{
		Config:  cfg,
		DB:      db,
		Cache:   c,
		PubSub:  pubsub,
		Catalog: catalog.Default(),
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	server := httptest.NewServer(srv.Engine)
	url := server.URL
	ts := &TestServer{
		DB:     db,
		Cache:  c,
		App:    srv,
		Server: server,
		URL:    url,
		WSURL:  "ws" + url[len("http"):] + "/ws",
		Config: cfg,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the HTTP server and saves every open game.
func (ts *TestServer) Close() {
	ts.Server.Close()
	_ = ts.App.Shutdown(context.Background())
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// NewGame creates a save and returns its id and token.
func (ts *TestServer) NewGame(t *testing.T, title string) (int64, string) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/games", map[string]string{"title": title}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result struct {
		SaveID int64  `json:"save_id"`
		Token  string `json:"token"`
	}
	ReadJSON(t, resp, &result)
	return result.SaveID, result.Token
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection for integration testing.
// Reads happen on a background goroutine so a receive timeout never
// poisons the connection.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// Packet is a received WS message.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectWS dials the test server's WS endpoint with the given save token.
func (ts *TestServer) ConnectWS(t *testing.T, token string) *WSClient {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.WSURL+"?token="+token, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	t.Cleanup(wc.Close)
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes a packet with the next sequence number.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	data, err := json.Marshal(Packet{Seq: seq, Type: msgType, Payload: payloadJSON})
	require.NoError(wc.t, err)
	require.NoError(wc.t, wc.Conn.WriteMessage(websocket.TextMessage, data))
}

// RecvType reads messages until one with the given type is found.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) Packet {
	wc.t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case res := <-wc.readCh:
			require.NoError(wc.t, res.err, "WS recv failed while waiting for %q", msgType)
			var pkt Packet
			require.NoError(wc.t, json.Unmarshal(res.data, &pkt))
			if pkt.Type == msgType {
				return pkt
			}
		case <-deadline:
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
			return Packet{}
		}
	}
}

// Frame sends one input snapshot and returns the resulting frame.
func (wc *WSClient) Frame(snap input.Snapshot) scene.View {
	wc.t.Helper()
	wc.Send("input", snap)
	var v scene.View
	require.NoError(wc.t, json.Unmarshal(wc.RecvType("scene_state", 5*time.Second).Payload, &v))
	return v
}

// Frames sends n snapshots and returns the last frame.
func (wc *WSClient) Frames(n int, snap input.Snapshot) scene.View {
	wc.t.Helper()
	var v scene.View
	for i := 0; i < n; i++ {
		v = wc.Frame(snap)
	}
	return v
}

// Press sends a frame with actions held, then a frame with nothing held.
func (wc *WSClient) Press(actions ...input.Action) scene.View {
	wc.t.Helper()
	wc.Frame(input.Snapshot{Pressed: actions})
	return wc.Frame(input.Snapshot{})
}

// Close closes the WebSocket connection.
func (wc *WSClient) Close() {
	_ = wc.Conn.Close()
}

// UniqueID returns a short unique string suitable for save titles.
var testCounter uint64

func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
