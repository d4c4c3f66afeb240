package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/rmmz-charselect/api/rest"
	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/charselect"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/world"
	mw "github.com/kasuganosora/rmmz-charselect/middleware"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"github.com/kasuganosora/rmmz-charselect/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actors map[int]string

func (a actors) HasActor(id int) bool    { _, ok := a[id]; return ok }
func (a actors) ActorName(id int) string { return a[id] }

var testSec = config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}

type server struct {
	r     *gin.Engine
	c     cache.Cache
	audit *audit.Service
	games *host.Games
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	cat := catalog.Default()

	store := world.NewStore(db, actors{1: "One", 2: "Two", 3: "Three", 4: "Four"},
		world.Defaults{Party: []int{1}, StartMapID: 1, StartX: 8, StartY: 6}, nil)
	hc := hook.NewHookCenter()
	charselect.InstallHooks(hc, charselect.DefaultSlots())
	games := host.NewGames(store, host.Deps{Hooks: hc, Select: charselect.Config{Catalog: cat}})
	auditSvc := audit.New(db, nil)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })

	charH := rest.NewCharacterHandler(cat, c, nil)
	gameH := rest.NewGameHandler(store, games, auditSvc, testSec, nil)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.GET("/characters", charH.List)
	api.GET("/characters/stats", charH.Stats)
	api.POST("/games", gameH.Create)
	api.GET("/games/:id", mw.Auth(testSec), mw.SaveOwner(), gameH.Detail)
	return &server{r: r, c: c, audit: auditSvc, games: games}
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestCharacters_List(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/characters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Characters []rest.CharacterEntry `json:"characters"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Characters, 4)
	for i, e := range resp.Characters {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, fmt.Sprintf("char_id_%d", i+1), e.ID)
		assert.Equal(t, i+1, e.ActorID)
	}
}

func TestCharacters_Stats(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	_, err := s.c.HIncrBy(ctx, cache.PicksKey, "char_id_2", 3)
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/characters/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Stats []rest.PickCount `json:"stats"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Stats, 4)
	assert.Equal(t, int64(0), resp.Stats[0].Picks)
	assert.Equal(t, "char_id_2", resp.Stats[1].ID)
	assert.Equal(t, int64(3), resp.Stats[1].Picks)
}

func createGame(t *testing.T, s *server, title string) (int64, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/games", "", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		SaveID int64  `json:"save_id"`
		Title  string `json:"title"`
		Token  string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotZero(t, resp.SaveID)
	require.NotEmpty(t, resp.Token)
	return resp.SaveID, resp.Token
}

func TestGames_CreateIssuesToken(t *testing.T) {
	s := newServer(t)
	id, token := createGame(t, s, "slot 1")

	claims, err := mw.ParseToken(token, testSec.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SaveID)

	s.audit.Stop(context.Background())
	logs, err := s.audit.History(context.Background(), id, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionSaveCreated, logs[0].Action)
	assert.Len(t, logs[0].TraceID, 36)
}

func TestGames_CreateNoBody(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/games", nil)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"New Game"`)
}

func TestGames_CreateRejectsLongTitle(t *testing.T) {
	s := newServer(t)
	long := string(bytes.Repeat([]byte("x"), 65))
	w := s.do(http.MethodPost, "/api/games", "", map[string]string{"title": long})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGames_Detail(t *testing.T) {
	s := newServer(t)
	id, token := createGame(t, s, "slot 1")

	w := s.do(http.MethodGet, fmt.Sprintf("/api/games/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var detail struct {
		SaveID   int64           `json:"save_id"`
		Scene    string          `json:"scene"`
		Party    []int           `json:"party"`
		Switches map[string]bool `json:"switches"`
	}
	decode(t, w, &detail)
	assert.Equal(t, id, detail.SaveID)
	assert.Equal(t, "title", detail.Scene)
	assert.Empty(t, detail.Switches)
	assert.Equal(t, 1, s.games.Count())

	g, ok := s.games.Get(id)
	require.True(t, ok)
	g.Session().State.SetSwitch(1, true)
	w = s.do(http.MethodGet, fmt.Sprintf("/api/games/%d", id), token, nil)
	decode(t, w, &detail)
	assert.True(t, detail.Switches["1"])
}

func TestGames_DetailAuth(t *testing.T) {
	s := newServer(t)
	id, token := createGame(t, s, "mine")
	other, _ := createGame(t, s, "theirs")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, fmt.Sprintf("/api/games/%d", id), "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, fmt.Sprintf("/api/games/%d", other), token, nil).Code)
}

func TestGames_DetailDeletedSave(t *testing.T) {
	s := newServer(t)
	token, err := mw.GenerateToken(999, testSec.JWTSecret, time.Hour)
	require.NoError(t, err)
	w := s.do(http.MethodGet, "/api/games/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
