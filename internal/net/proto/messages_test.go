package proto

import (
	"encoding/json"
	"testing"

	"roomnav/internal/nav"
)

func TestDecodeClientMessage(t *testing.T) {
	t.Run("defaults version", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"heartbeat","sentAt":12}`))
		if err != nil {
			t.Fatalf("DecodeClientMessage returned error: %v", err)
		}
		if msg.Ver != Version || msg.Type != TypeHeartbeat || msg.SentAt != 12 {
			t.Fatalf("unexpected message %+v", msg)
		}
	})

	t.Run("rejects future version", func(t *testing.T) {
		if _, err := DecodeClientMessage([]byte(`{"ver":2,"type":"path"}`)); err == nil {
			t.Fatalf("expected version mismatch to fail")
		}
	})

	t.Run("rejects missing type", func(t *testing.T) {
		if _, err := DecodeClientMessage([]byte(`{"seq":4}`)); err == nil {
			t.Fatalf("expected missing type to fail")
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		if _, err := DecodeClientMessage([]byte(`{`)); err == nil {
			t.Fatalf("expected malformed payload to fail")
		}
	})
}

func TestPathQuery(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"path","seq":3,"start":{"x":16,"y":16},"goal":{"x":80,"y":48},"costBias":{"front-door":2},"preferIndoor":true}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage returned error: %v", err)
	}
	query, ok := msg.PathQuery()
	if !ok {
		t.Fatalf("expected path query")
	}
	if query.Start != (nav.Point{X: 16, Y: 16}) || query.Goal != (nav.Point{X: 80, Y: 48}) {
		t.Fatalf("unexpected endpoints %+v", query)
	}
	if query.CostBias["front-door"] != 2 || !query.PreferIndoor {
		t.Fatalf("unexpected options %+v", query)
	}

	missing := ClientMessage{Type: TypePath, Start: &nav.Point{}}
	if _, ok := missing.PathQuery(); ok {
		t.Fatalf("expected query without goal to be rejected")
	}
	wrongType := ClientMessage{Type: TypeHeartbeat, Start: &nav.Point{}, Goal: &nav.Point{}}
	if _, ok := wrongType.PathQuery(); ok {
		t.Fatalf("expected non-path message to be rejected")
	}
}

func TestOutboundMessagesCarryType(t *testing.T) {
	cases := []struct {
		name string
		msg  any
		want string
	}{
		{"path result", NewPathResult(1, nav.PathResponse{OK: true}), TypePathResult},
		{"ack", NewAck(2), TypeAck},
		{"reject", NewReject(3, RejectNotFound), TypeReject},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.msg)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.name, err)
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if frame["type"] != tc.want {
			t.Fatalf("%s: expected type %q, got %v", tc.name, tc.want, frame["type"])
		}
		if frame["ver"] != float64(Version) {
			t.Fatalf("%s: expected version %d, got %v", tc.name, Version, frame["ver"])
		}
	}
}

func TestRegionStates(t *testing.T) {
	got := RegionStates([]nav.RegionInfo{{ID: 0}, {ID: 1, Indoor: true}})
	if len(got) != 2 || got[0].Indoor || !got[1].Indoor || got[1].ID != 1 {
		t.Fatalf("unexpected region states %+v", got)
	}
}
