package debugapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/content"
	"github.com/cory-johannsen/yomi/internal/debugapi"
	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/dice"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/gameserver"
)

type fixture struct {
	world *sim.World
	hub   *debugapi.Hub
	api   *debugapi.Server
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := content.Load(config.ContentConfig{
		WeaponsDir: "../../content/weapons",
		BossesDir:  "../../content/bosses",
		EnemiesDir: "../../content/enemies",
		FoodsDir:   "../../content/foods",
		LootDir:    "../../content/loot",
	})
	require.NoError(t, err)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(11), zap.NewNop())
	w := sim.New(sim.DefaultConfig(), catalog, roller, zap.NewNop())
	require.NoError(t, w.SpawnBoss("kitsune_no_okami", "fox", cp.Vector{}))
	require.NoError(t, w.SpawnEnemy("oni", "oni-1", cp.Vector{X: 8000}))

	tm := gameserver.NewTickManager(time.Second, nil)
	roster := gameserver.NewService(w, tm, nil, 0, zap.NewNop())
	hub := debugapi.NewHub()
	w.Subscribe(hub.Publish)

	s := debugapi.NewServer("127.0.0.1:0", w, roster, hub, zaptest.NewLogger(t))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{world: w, hub: hub, api: s, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestServer_ListsCombatants(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/combatants?kind=boss")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []sim.CombatantView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "fox", views[0].ID)
	require.NotNil(t, views[0].Encounter)
	assert.Equal(t, boss.Inactive, views[0].Encounter.State)
}

func TestServer_HealthReflectsCheck(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	f.api.SetHealthCheck(func(context.Context) error { return errors.New("database unreachable") })
	resp, body = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Contains(t, body["error"], "unreachable")
}

func TestServer_UnknownCombatantIs404(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/combatants/nue", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "nue")

	resp, _ = f.do(t, http.MethodPost, "/combatants/nue/actions", debugapi.ActionRequest{Action: "light"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_JoinActLeave(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/players", debugapi.JoinRequest{ID: "hero", X: 500})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["restored"])

	resp, _ = f.do(t, http.MethodPost, "/players", debugapi.JoinRequest{ID: "hero"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// unarmed players cannot swing
	resp, body = f.do(t, http.MethodPost, "/combatants/hero/actions", debugapi.ActionRequest{Action: "light"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["accepted"])

	resp, _ = f.do(t, http.MethodPost, "/combatants/hero/actions", debugapi.ActionRequest{Action: "cartwheel"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/encounters/fox/start", debugapi.StartRequest{Player: "hero"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["accepted"])

	resp, body = f.do(t, http.MethodGet, "/encounters/fox", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(boss.Active), body["state"])
	assert.Equal(t, "hero", body["challenger_id"])

	resp, _ = f.do(t, http.MethodPost, "/encounters/oni-1/start", debugapi.StartRequest{Player: "hero"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "enemies host no encounter")

	resp, _ = f.do(t, http.MethodDelete, "/players/hero", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok := f.world.Combatant("hero")
	assert.False(t, ok)
}

func TestServer_RejectsUnknownBodyFields(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/players", map[string]any{"id": "hero", "level": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_State(t *testing.T) {
	f := newFixture(t)
	f.world.Tick(0.5)
	resp, err := http.Get(f.srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st debugapi.StateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.InDelta(t, 0.5, st.Elapsed, 1e-9)
	assert.Len(t, st.Combatants, 2)
	assert.Len(t, st.Encounters, 1)
}

func TestServer_EventFeedStreamsFilteredEvents(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/events?kinds=encounter_started"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.world.AddPlayer("hero", cp.Vector{X: 300}))
	ok, err := f.world.StartEncounter("fox", "hero")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.EncounterStarted.String(), got["kind"])
	assert.Equal(t, "fox", got["subject"])
}

func TestServer_EventFeedRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/events?kinds=exploded")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
