package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"roomnav/internal/nav"
	"roomnav/internal/net/proto"
	"roomnav/internal/route"
)

var (
	leftPoint  = nav.Point{X: 3.5 * nav.DefaultTileSize, Y: 5.5 * nav.DefaultTileSize}
	rightPoint = nav.Point{X: 20.5 * nav.DefaultTileSize, Y: 5.5 * nav.DefaultTileSize}
)

func newTestService(t *testing.T) *route.Service {
	t.Helper()
	ts := nav.DefaultTileSize
	n := nav.New(nav.DefaultConfig())
	err := n.Load(nav.Layout{
		Width:  25,
		Height: 10,
		Blocked: []nav.Rect{
			{X: 12 * ts, Y: 0, Width: ts, Height: 2 * ts},
			{X: 12 * ts, Y: 4 * ts, Width: ts, Height: 6 * ts},
		},
		Doors: []nav.Door{{ID: "door", Rect: nav.Rect{X: 12 * ts, Y: 2 * ts, Width: ts, Height: 2 * ts}}},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return route.NewService(n, route.Config{})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	parsed, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	conn, resp, err := websocket.DefaultDialer.Dial(parsed.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("failed to decode frame %s: %v", payload, err)
	}
	return frame
}

func expectType(t *testing.T, frame map[string]any, want string) {
	t.Helper()
	if got, _ := frame["type"].(string); got != want {
		t.Fatalf("expected %q frame, got %v", want, frame)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send %v: %v", msg, err)
	}
}

func TestSessionGreetsWithPortalState(t *testing.T) {
	service := newTestService(t)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(service, HandlerConfig{}).Handle))
	t.Cleanup(srv.Close)

	frame := readFrame(t, dial(t, srv))
	expectType(t, frame, proto.TypeState)
	if id, _ := frame["sessionId"].(string); id == "" {
		t.Fatalf("expected session id in greeting, got %v", frame)
	}
	portals, ok := frame["portals"].([]any)
	if !ok || len(portals) != 1 {
		t.Fatalf("expected one portal in greeting, got %v", frame["portals"])
	}
}

func TestSessionPathQueryAndPortalToggle(t *testing.T) {
	service := newTestService(t)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(service, HandlerConfig{}).Handle))
	t.Cleanup(srv.Close)

	agent := dial(t, srv)
	expectType(t, readFrame(t, agent), proto.TypeState)
	observer := dial(t, srv)
	expectType(t, readFrame(t, observer), proto.TypeState)

	query := map[string]any{"type": proto.TypePath, "seq": 1, "start": leftPoint, "goal": rightPoint}
	send(t, agent, query)
	frame := readFrame(t, agent)
	expectType(t, frame, proto.TypePathResult)
	result, _ := frame["result"].(map[string]any)
	if ok, _ := result["ok"].(bool); !ok {
		t.Fatalf("expected successful route, got %v", result)
	}

	send(t, agent, map[string]any{"type": proto.TypeSetPortal, "seq": 2, "id": "door", "open": false})
	expectType(t, readFrame(t, agent), proto.TypePortalState)
	ack := readFrame(t, agent)
	expectType(t, ack, proto.TypeAck)
	if ack["seq"] != float64(2) {
		t.Fatalf("expected ack for seq 2, got %v", ack)
	}
	broadcast := readFrame(t, observer)
	expectType(t, broadcast, proto.TypePortalState)
	portals, _ := broadcast["portals"].([]any)
	first, _ := portals[0].(map[string]any)
	if open, _ := first["open"].(bool); open {
		t.Fatalf("expected broadcast to report the closed portal, got %v", first)
	}

	query["seq"] = 3
	send(t, agent, query)
	frame = readFrame(t, agent)
	expectType(t, frame, proto.TypePathResult)
	result, _ = frame["result"].(map[string]any)
	if result["reason"] != string(nav.ReasonNoPath) {
		t.Fatalf("expected NoPath after closing the door, got %v", result)
	}

	// Replaying an applied mutation is acknowledged without a broadcast.
	send(t, agent, map[string]any{"type": proto.TypeSetPortal, "seq": 2, "id": "door", "open": true})
	expectType(t, readFrame(t, agent), proto.TypeAck)
	if portal := service.Portals()[0]; portal.Open {
		t.Fatalf("expected replayed mutation to be ignored")
	}
}

func TestSessionRejectsBadMessages(t *testing.T) {
	service := newTestService(t)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(service, HandlerConfig{}).Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	expectType(t, readFrame(t, conn), proto.TypeState)

	cases := []struct {
		name   string
		msg    map[string]any
		reason string
	}{
		{"unknown portal", map[string]any{"type": proto.TypeSetPortal, "seq": 1, "id": "nope", "open": false}, proto.RejectNotFound},
		{"missing flag", map[string]any{"type": proto.TypeSetPortal, "seq": 2, "id": "door"}, proto.RejectInvalidMessage},
		{"bad cost", map[string]any{"type": proto.TypeSetCost, "seq": 3, "id": "door", "multiplier": -1}, proto.RejectInvalidCost},
		{"unknown region", map[string]any{"type": proto.TypeSetIndoor, "seq": 4, "region": 9, "indoor": true}, proto.RejectNotFound},
		{"path without goal", map[string]any{"type": proto.TypePath, "seq": 5, "start": leftPoint}, proto.RejectInvalidMessage},
		{"unknown type", map[string]any{"type": "teleport", "seq": 6}, proto.RejectUnknownType},
		{"future version", map[string]any{"ver": 9, "type": proto.TypePath}, proto.RejectInvalidMessage},
	}
	for _, tc := range cases {
		send(t, conn, tc.msg)
		frame := readFrame(t, conn)
		expectType(t, frame, proto.TypeReject)
		if frame["reason"] != tc.reason {
			t.Fatalf("%s: expected reason %q, got %v", tc.name, tc.reason, frame["reason"])
		}
	}
}

func TestSessionHeartbeat(t *testing.T) {
	service := newTestService(t)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(service, HandlerConfig{}).Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	expectType(t, readFrame(t, conn), proto.TypeState)

	sent := time.Now().UnixMilli()
	send(t, conn, map[string]any{"type": proto.TypeHeartbeat, "sentAt": sent})
	frame := readFrame(t, conn)
	expectType(t, frame, proto.TypeHeartbeat)
	if frame["clientTime"] != float64(sent) {
		t.Fatalf("expected echoed client time %d, got %v", sent, frame["clientTime"])
	}
	if service.SessionCount() != 1 {
		t.Fatalf("expected one live session, got %d", service.SessionCount())
	}
}
