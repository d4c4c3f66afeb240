package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selectionEvent struct {
	SaveID      int64  `json:"save_id"`
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	ActorID     int    `json:"actor_id"`
	Party       []int  `json:"party"`
	MapID       int    `json:"map_id"`
	X           int    `json:"x"`
}

type gameDetail struct {
	SaveID    int64                  `json:"save_id"`
	Scene     string                 `json:"scene"`
	Switches  map[string]bool        `json:"switches"`
	Variables map[string]interface{} `json:"variables"`
	Party     []int                  `json:"party"`
	Player    struct {
		CharacterName string `json:"character_name"`
		MapID         int    `json:"map_id"`
		X             int    `json:"x"`
		Y             int    `json:"y"`
	} `json:"player"`
	History []struct {
		Action string `json:"action"`
	} `json:"history"`
}

// untilScene feeds empty frames until the named scene is active.
func untilScene(t *testing.T, wc *WSClient, name string) scene.View {
	t.Helper()
	for i := 0; i < 20; i++ {
		v := wc.Frame(input.Snapshot{})
		if v.Scene == name {
			return v
		}
	}
	t.Fatalf("scene %q never became active", name)
	return scene.View{}
}

func selectedChoice(v scene.View) string {
	for _, n := range v.Nodes {
		if strings.HasPrefix(n.ID, "choice_") && n.Selected {
			return n.ID
		}
	}
	return ""
}

// sseEvents streams "event: x / data: y" pairs from /sse.
func sseEvents(t *testing.T, ts *TestServer) <-chan [2]string {
	t.Helper()
	resp, err := http.Get(ts.URL + "/sse")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() { resp.Body.Close() })

	out := make(chan [2]string, 16)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(resp.Body)
		var event string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				out <- [2]string{event, strings.TrimPrefix(line, "data: ")}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, ch <-chan [2]string, name string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "sse stream closed while waiting for %q", name)
			if ev[0] == name {
				return ev[1]
			}
		case <-deadline:
			t.Fatalf("timed out waiting for sse event %q", name)
			return ""
		}
	}
}

func TestSelectionFlow(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.Get(t, "/api/characters", "")
	var list struct {
		Characters []struct {
			Index int    `json:"index"`
			ID    string `json:"id"`
		} `json:"characters"`
	}
	ReadJSON(t, resp, &list)
	require.Len(t, list.Characters, 4)

	events := sseEvents(t, ts)
	nextEvent(t, events, "connected")

	// A second save connected only to watch broadcasts.
	_, watcherToken := ts.NewGame(t, UniqueID("watcher"))
	watcher := ts.ConnectWS(t, watcherToken)
	watcher.RecvType("scene_state", 5*time.Second)

	saveID, token := ts.NewGame(t, UniqueID("hero"))
	wc := ts.ConnectWS(t, token)
	var v scene.View
	require.NoError(t, json.Unmarshal(wc.RecvType("scene_state", 5*time.Second).Payload, &v))
	assert.Equal(t, scene.Title, v.Scene)

	wc.Send("new_game", struct{}{})
	wc.RecvType("scene_state", 5*time.Second)
	v = untilScene(t, wc, scene.CharacterSelect)
	assert.Equal(t, "choice_0", selectedChoice(v))

	// Left from the first choice wraps to the last.
	v = wc.Press(input.Left)
	assert.Equal(t, "choice_3", selectedChoice(v))

	wc.Press(input.OK)
	untilScene(t, wc, scene.Map)

	var sel selectionEvent
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "selection")), &sel))
	assert.Equal(t, saveID, sel.SaveID)
	assert.Equal(t, "char_id_4", sel.CharacterID)
	assert.Equal(t, []int{4}, sel.Party)
	assert.Equal(t, 16, sel.X)

	var broadcast selectionEvent
	require.NoError(t, json.Unmarshal(watcher.RecvType("selection", 5*time.Second).Payload, &broadcast))
	assert.Equal(t, sel.CharacterID, broadcast.CharacterID)
	assert.Equal(t, saveID, broadcast.SaveID)

	var detail gameDetail
	ReadJSON(t, ts.Get(t, "/api/games/"+itoa(saveID), token), &detail)
	assert.Equal(t, scene.Map, detail.Scene)
	assert.True(t, detail.Switches["1"])
	assert.Equal(t, "char_id_4", detail.Variables["1"])
	assert.Equal(t, "Character Four", detail.Variables["2"])
	assert.Equal(t, []int{4}, detail.Party)
	assert.Equal(t, 2, detail.Player.MapID)
	assert.Equal(t, 16, detail.Player.X)
	assert.Equal(t, 10, detail.Player.Y)
	actions := make([]string, 0, len(detail.History))
	for _, h := range detail.History {
		actions = append(actions, h.Action)
	}
	assert.Contains(t, actions, "character_selected")

	var stats struct {
		Stats []struct {
			ID    string `json:"id"`
			Picks int64  `json:"picks"`
		} `json:"stats"`
	}
	ReadJSON(t, ts.Get(t, "/api/characters/stats", ""), &stats)
	picks := map[string]int64{}
	for _, s := range stats.Stats {
		picks[s.ID] = s.Picks
	}
	assert.Equal(t, int64(1), picks["char_id_4"])
	assert.Zero(t, picks["char_id_1"])
}

func TestSelectionFlow_ResumeSkipsSelection(t *testing.T) {
	ts := NewTestServer(t)
	saveID, token := ts.NewGame(t, UniqueID("resume"))

	wc := ts.ConnectWS(t, token)
	wc.RecvType("scene_state", 5*time.Second)
	wc.Send("new_game", struct{}{})
	wc.RecvType("scene_state", 5*time.Second)
	untilScene(t, wc, scene.CharacterSelect)
	wc.Press(input.OK)
	untilScene(t, wc, scene.Map)

	wc.Send("save", struct{}{})
	wc.RecvType("saved", 5*time.Second)
	wc.Close()

	// The server releases the game and the lease once the socket is gone.
	require.Eventually(t, func() bool {
		_, open := ts.App.Runtime.Games.Get(saveID)
		_, err := ts.Cache.Get(context.Background(), cache.LeaseKey(saveID))
		return !open && cache.IsNotFound(err)
	}, 5*time.Second, 20*time.Millisecond)

	wc = ts.ConnectWS(t, token)
	var v scene.View
	require.NoError(t, json.Unmarshal(wc.RecvType("scene_state", 5*time.Second).Payload, &v))
	assert.Equal(t, scene.Title, v.Scene)

	wc.Send("new_game", struct{}{})
	wc.RecvType("scene_state", 5*time.Second)
	for i := 0; i < 20; i++ {
		v = wc.Frame(input.Snapshot{})
		require.NotEqual(t, scene.CharacterSelect, v.Scene, "selection must not reopen once made")
		if v.Scene == scene.Map {
			break
		}
	}
	assert.Equal(t, scene.Map, v.Scene)

	var detail gameDetail
	ReadJSON(t, ts.Get(t, "/api/games/"+itoa(saveID), token), &detail)
	assert.True(t, detail.Switches["1"])
	assert.Equal(t, "char_id_1", detail.Variables["1"])
}

func TestSelectionFlow_ReopenCommand(t *testing.T) {
	ts := NewTestServer(t)
	_, token := ts.NewGame(t, UniqueID("reopen"))

	wc := ts.ConnectWS(t, token)
	wc.RecvType("scene_state", 5*time.Second)
	wc.Send("new_game", struct{}{})
	wc.RecvType("scene_state", 5*time.Second)
	untilScene(t, wc, scene.CharacterSelect)
	wc.Press(input.Right)
	wc.Press(input.OK)
	untilScene(t, wc, scene.Map)

	wc.Send("plugin_command", map[string]interface{}{"command": "CharacterSelect.Open"})
	var res struct {
		Command string `json:"command"`
		OK      bool   `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(wc.RecvType("command_result", 5*time.Second).Payload, &res))
	assert.True(t, res.OK)
	untilScene(t, wc, scene.CharacterSelect)
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	var health struct {
		Status string   `json:"status"`
		Tasks  []string `json:"tasks"`
	}
	ReadJSON(t, ts.Get(t, "/health", ""), &health)
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Tasks, "state_flush")
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
