package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"roomnav/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "nav.portal_state",
		Seq:      7,
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:    logging.EntityRef{ID: "shop", Kind: logging.EntityKindNavigator},
		Targets:  []logging.EntityRef{{ID: "front-door", Kind: logging.EntityKindPortal}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryState,
		Payload:  map[string]any{"open": false},
		Extra:    map[string]any{"component": "route"},
		MapID:    "shop",
	}
}

func TestConsoleSinkFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		"[nav.portal_state]",
		"seq=7",
		"actor=navigator:shop",
		"severity=info",
		"targets=portal:front-door",
		`payload={"open":false}`,
		"component=route",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONSinkWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	for i := 0; i < 2; i++ {
		if err := sink.Write(sampleEvent()); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["severity"] != "info" || decoded["mapId"] != "shop" || decoded["time"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected JSON event %v", decoded)
	}
}

func TestJSONSinkFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, time.Hour)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered output before close")
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "nav.portal_state") {
		t.Fatalf("expected flushed event, got %q", buf.String())
	}
}

func TestMemorySinkFiltersAndResets(t *testing.T) {
	sink := NewMemorySink()
	sink.Publish(context.Background(), sampleEvent())
	sink.Publish(context.Background(), logging.Event{Type: "nav.region_state"})
	if got := sink.OfType("nav.region_state"); len(got) != 1 {
		t.Fatalf("expected one region event, got %d", len(got))
	}
	events := sink.Events()
	events[0].Type = "mutated"
	if sink.Events()[0].Type != "nav.portal_state" {
		t.Fatalf("expected Events to return a copy")
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
