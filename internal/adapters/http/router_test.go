package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/MedCall/internal/app"
	"github.com/dkeye/MedCall/internal/app/orch"
	"github.com/dkeye/MedCall/internal/config"
	"github.com/dkeye/MedCall/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func newTestRouter(t *testing.T) (*orch.Orchestrator, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Mode:       "test",
		Secret:     "test-secret",
		ReadLimit:  4096,
		PingPeriod: time.Second,
		PongWait:   2 * time.Second,
		WriteWait:  time.Second,
		SendQueue:  8,
	}
	reg := app.NewRegistry()
	rooms := app.NewRoomStore()
	promReg := prometheus.NewRegistry()
	o := &orch.Orchestrator{
		Registry:             reg,
		Rooms:                rooms,
		Relay:                app.NewRelay(reg),
		Policy:               app.SimplePolicy{},
		Metrics:              app.NewMetrics(promReg, reg, rooms),
		ICEServers:           []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		ICECandidatePoolSize: 10,
	}
	return o, SetupRouter(context.Background(), cfg, o, promReg)
}

func do(t *testing.T, h http.Handler, method, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body
}

func seed(o *orch.Orchestrator) {
	o.Connect("ca", nopConn{}, nil)
	o.Connect("cb", nopConn{}, nil)
	o.Dispatch("ca", core.UserJoin{UserID: "A", UserName: "Ann"})
	o.Dispatch("ca", core.RoomJoin{RoomID: "r1", UserID: "A", UserName: "Ann", IsDoctor: true})
	o.Dispatch("cb", core.RoomJoin{RoomID: "r1", UserID: "B", UserName: "Ben"})
}

func TestListRooms(t *testing.T) {
	o, h := newTestRouter(t)

	code, body := do(t, h, http.MethodGet, "/api/video/rooms")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []any{}, body["rooms"])

	seed(o)
	_, body = do(t, h, http.MethodGet, "/api/video/rooms")
	assert.EqualValues(t, 1, body["count"])
	room := body["rooms"].([]any)[0].(map[string]any)
	assert.Equal(t, "r1", room["roomId"])
	assert.EqualValues(t, 2, room["participantCount"])
	assert.Equal(t, "active", room["status"])
}

func TestRoomDetails(t *testing.T) {
	o, h := newTestRouter(t)
	seed(o)

	code, body := do(t, h, http.MethodGet, "/api/video/rooms/r1")
	require.Equal(t, http.StatusOK, code)
	room := body["room"].(map[string]any)
	assert.Len(t, room["participants"], 2)
	assert.Equal(t, "r1", room["roomId"])

	code, body = do(t, h, http.MethodGet, "/api/video/rooms/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Room not found", body["message"])
}

func TestKickRoute(t *testing.T) {
	o, h := newTestRouter(t)
	seed(o)

	code, body := do(t, h, http.MethodPost, "/api/video/rooms/r1/kick/B")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	d, err := o.GetRoomDetails("r1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.ParticipantCount)

	code, _ = do(t, h, http.MethodPost, "/api/video/rooms/r1/kick/B")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestVideoConfig(t *testing.T) {
	_, h := newTestRouter(t)

	code, body := do(t, h, http.MethodGet, "/api/video/config")
	require.Equal(t, http.StatusOK, code)
	cfg := body["config"].(map[string]any)
	assert.EqualValues(t, 10, cfg["iceCandidatePoolSize"])
	servers := cfg["iceServers"].([]any)
	require.Len(t, servers, 1)
	assert.Equal(t, []any{"stun:stun.l.google.com:19302"}, servers[0].(map[string]any)["urls"])
}

func TestOnlineUsers(t *testing.T) {
	o, h := newTestRouter(t)
	seed(o)

	_, body := do(t, h, http.MethodGet, "/api/users/online")
	assert.Equal(t, []any{"A"}, body["users"])
	assert.EqualValues(t, 1, body["count"])
}

func TestHealthAndMetrics(t *testing.T) {
	o, h := newTestRouter(t)
	seed(o)

	code, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medcall_rooms 1")
	assert.Contains(t, w.Body.String(), `medcall_events_total{type="room:join"} 2`)
}

func TestClientTokenCookie(t *testing.T) {
	_, h := newTestRouter(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "MedCallSession=")
}
