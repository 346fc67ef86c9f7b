package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomnav/internal/nav"
	"roomnav/internal/observability"
	"roomnav/internal/route"
)

func newTestHandler(t *testing.T, cfg HTTPHandlerConfig) (http.Handler, *route.Service) {
	t.Helper()
	ts := nav.DefaultTileSize
	n := nav.New(nav.DefaultConfig())
	err := n.Load(nav.Layout{
		Width:   9,
		Height:  3,
		Blocked: []nav.Rect{{X: 4 * ts, Y: 0, Width: ts, Height: ts}, {X: 4 * ts, Y: 2 * ts, Width: ts, Height: ts}},
		Doors:   []nav.Door{{ID: "gate", Rect: nav.Rect{X: 4 * ts, Y: ts, Width: ts, Height: ts}}},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	service := route.NewService(n, route.Config{})
	return NewHTTPHandler(service, cfg), service
}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})
	resp := do(handler, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestPathEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})

	resp := do(handler, http.MethodPost, "/path", `{"start":{"x":16,"y":48},"goal":{"x":272,"y":48}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}
	var result nav.PathResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode path response: %v", err)
	}
	if !result.OK || len(result.Portals) != 1 || result.Portals[0] != "gate" {
		t.Fatalf("expected route through gate, got %+v", result)
	}

	resp = do(handler, http.MethodPost, "/path", `{"start":{"x":144,"y":16},"goal":{"x":272,"y":48}}`)
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode path response: %v", err)
	}
	if result.OK || result.Reason != nav.ReasonInvalidStart {
		t.Fatalf("expected InvalidStart, got %+v", result)
	}
}

func TestPathEndpointRejectsBadRequests(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})
	cases := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed", http.MethodPost, "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"from":{"x":1,"y":1}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if resp := do(handler, tc.method, "/path", tc.body); resp.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestMutationEndpoints(t *testing.T) {
	handler, service := newTestHandler(t, HTTPHandlerConfig{})
	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"close gate", "/portals/open", `{"id":"gate","open":false}`, http.StatusNoContent},
		{"unknown portal", "/portals/open", `{"id":"nope","open":false}`, http.StatusNotFound},
		{"missing open", "/portals/open", `{"id":"gate"}`, http.StatusBadRequest},
		{"cost", "/portals/cost", `{"id":"gate","multiplier":2.5}`, http.StatusNoContent},
		{"bad cost", "/portals/cost", `{"id":"gate","multiplier":0}`, http.StatusBadRequest},
		{"indoor", "/regions/indoor", `{"id":1,"indoor":true}`, http.StatusNoContent},
		{"unknown region", "/regions/indoor", `{"id":7,"indoor":true}`, http.StatusNotFound},
		{"missing region", "/regions/indoor", `{"indoor":true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if resp := do(handler, http.MethodPost, tc.path, tc.body); resp.Code != tc.want {
			t.Fatalf("%s: expected status %d, got %d (%s)", tc.name, tc.want, resp.Code, resp.Body.String())
		}
	}

	portal := service.Portals()[0]
	if portal.Open || portal.CostMultiplier != 2.5 {
		t.Fatalf("unexpected portal state %+v", portal)
	}
	if regions := service.Regions(); !regions[1].Indoor || regions[0].Indoor {
		t.Fatalf("expected only region 1 indoor")
	}

	resp := do(handler, http.MethodPost, "/path", `{"start":{"x":16,"y":48},"goal":{"x":272,"y":48}}`)
	var result nav.PathResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode path response: %v", err)
	}
	if result.Reason != nav.ReasonNoPath {
		t.Fatalf("expected NoPath with the gate closed, got %+v", result)
	}
}

func TestDiagnosticsIncludesTelemetry(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})
	do(handler, http.MethodPost, "/path", `{"start":{"x":16,"y":48},"goal":{"x":272,"y":48}}`)

	resp := do(handler, http.MethodGet, "/diagnostics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}
	if payload["status"] != "ok" || payload["regions"] != float64(2) || payload["portals"] != float64(1) {
		t.Fatalf("unexpected diagnostics %v", payload)
	}
	telemetry, ok := payload["telemetry"].(map[string]any)
	if !ok {
		t.Fatalf("expected telemetry object, got %T", payload["telemetry"])
	}
	if telemetry[route.MetricPathQueries] != float64(1) {
		t.Fatalf("expected one counted query, got %v", telemetry)
	}
}

func TestListingAndMapEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})

	var portals []nav.PortalInfo
	if err := json.Unmarshal(do(handler, http.MethodGet, "/portals", "").Body.Bytes(), &portals); err != nil {
		t.Fatalf("failed to decode portals: %v", err)
	}
	if len(portals) != 1 || portals[0].ID != "gate" || portals[0].Regions != [2]int{0, 1} {
		t.Fatalf("unexpected portals %+v", portals)
	}

	var regions []nav.RegionInfo
	if err := json.Unmarshal(do(handler, http.MethodGet, "/regions", "").Body.Bytes(), &regions); err != nil {
		t.Fatalf("failed to decode regions: %v", err)
	}
	if len(regions) != 2 || len(regions[0].Tiles) != 12 {
		t.Fatalf("unexpected regions %+v", regions)
	}

	body := do(handler, http.MethodGet, "/map?regions=1", "").Body.String()
	if !strings.Contains(body, "0000+1111") {
		t.Fatalf("expected region dump with open portal, got:\n%s", body)
	}
}

func TestPprofIsOptIn(t *testing.T) {
	handler, _ := newTestHandler(t, HTTPHandlerConfig{})
	if resp := do(handler, http.MethodGet, "/debug/pprof/", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be hidden by default, got %d", resp.Code)
	}
	enabled, _ := newTestHandler(t, HTTPHandlerConfig{Observability: observability.Config{EnablePprofTrace: true}})
	if resp := do(enabled, http.MethodGet, "/debug/pprof/", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index when enabled, got %d", resp.Code)
	}
}
