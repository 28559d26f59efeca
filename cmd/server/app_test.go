// cmd/server/app_test.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/config"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.AllowDevTokens = true
	cfg.Server.AdminKey = "secret"
	cfg.Game.AllowedStakes = []int64{10}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*App, *httptest.Server) {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(app.Router())
	t.Cleanup(func() {
		app.Shutdown("test done")
		srv.Close()
		app.Close()
	})
	return app, srv
}

func adminRequest(t *testing.T, method, url, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set(adminKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func request(t *testing.T, ws *websocket.Conn, event constants.EventType, ackID string, payload, result interface{}) {
	t.Helper()
	data, err := protocol.EncodeRequest(event, ackID, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))

	msg := readUntil(t, ws, func(m *protocol.Message) bool { return m.Event == constants.EvtAck && m.AckID == ackID })
	head, err := protocol.DecodeAck(msg, result)
	require.NoError(t, err)
	require.True(t, head.OK, head.Message)
}

func readUntil(t *testing.T, ws *websocket.Conn, match func(*protocol.Message) bool) *protocol.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.DecodeMessage(data)
		require.NoError(t, err)
		if match(msg) {
			return msg
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, srv := newTestServer(t, testConfig())

	resp := adminRequest(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	resp = adminRequest(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRequiresKey(t *testing.T) {
	_, srv := newTestServer(t, testConfig())
	resp := adminRequest(t, http.MethodGet, srv.URL+"/admin/games/g1/audit", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cfg := testConfig()
	cfg.Server.AdminKey = ""
	_, open := newTestServer(t, cfg)
	resp = adminRequest(t, http.MethodGet, open.URL+"/admin/games/g1/audit", "anything")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminErrorsMapToStatus(t *testing.T) {
	_, srv := newTestServer(t, testConfig())

	resp := adminRequest(t, http.MethodPost, srv.URL+"/admin/rooms/nope/end", "secret")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, constants.ErrNoGame, body.Code)

	resp = adminRequest(t, http.MethodGet, srv.URL+"/admin/games/nope/audit", "secret")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminEndsGameAndAuditsDice(t *testing.T) {
	app, srv := newTestServer(t, testConfig())
	alice := dial(t, srv, "dev:alice")
	bob := dial(t, srv, "dev:bob")

	var created protocol.RoomPayload
	request(t, alice, constants.EvtSessionCreate, "1",
		protocol.CreateRoomPayload{Stake: 10, Mode: constants.ModeClassic, MaxPlayers: 2}, &created)
	roomID := created.Room.RoomID
	request(t, bob, constants.EvtSessionJoin, "1", protocol.RoomRefPayload{RoomID: roomID}, nil)

	var start protocol.GameStartPayload
	msg := readUntil(t, alice, func(m *protocol.Message) bool { return m.Event == constants.EvtGameStart })
	require.NoError(t, json.Unmarshal(msg.Payload, &start))

	current := alice
	if start.Players[start.TurnIndex].UserID == "bob" {
		current = bob
	}
	request(t, current, constants.EvtDiceRoll, "2", protocol.RoomRefPayload{RoomID: roomID}, nil)

	resp := adminRequest(t, http.MethodGet, srv.URL+"/admin/games/"+start.GameID+"/audit", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var audit auditResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&audit))
	assert.True(t, audit.Valid, audit.Error)

	resp = adminRequest(t, http.MethodPost, srv.URL+"/admin/rooms/"+roomID+"/end?winner=bob", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view models.GameView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, constants.GameEnded, view.Status)
	assert.Equal(t, "bob", view.WinnerUserID)

	end := readUntil(t, bob, func(m *protocol.Message) bool { return m.Event == constants.EvtGameEnd })
	var payload protocol.GameEndPayload
	require.NoError(t, json.Unmarshal(end.Payload, &payload))
	assert.Equal(t, "bob", payload.WinnerUserID)

	resp = adminRequest(t, http.MethodGet, srv.URL+"/debug/presence", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, app.coord.Presence().Snapshot())
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Storage.Driver = config.StorageRedis
	cfg.Redis.Addr = mr.Addr()

	_, srv := newTestServer(t, cfg)
	alice := dial(t, srv, "dev:alice")

	var created protocol.RoomPayload
	request(t, alice, constants.EvtSessionCreate, "1",
		protocol.CreateRoomPayload{Stake: 10, Mode: constants.ModeQuick, MaxPlayers: 2}, &created)
	assert.True(t, mr.Exists("ludo:room:"+created.Room.RoomID))
}

func TestNewAppFailsOnUnreachableBackends(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Driver = config.StorageRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := NewApp(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Storage.Driver = "etcd"
	_, err = NewApp(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(errs.KindValidation))
	assert.Equal(t, http.StatusConflict, statusOf(errs.KindRule))
	assert.Equal(t, http.StatusConflict, statusOf(errs.KindConflict))
	assert.Equal(t, http.StatusNotFound, statusOf(errs.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errs.KindInternal))
}
