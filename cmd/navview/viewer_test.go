package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/zyedidia/generic/mapset"

	"roomnav/internal/nav"
)

// corridorNavigator is a 9x3 corridor split by a one-tile door at column 4.
func corridorNavigator(t *testing.T) *nav.Navigator {
	t.Helper()
	n := nav.New(nav.DefaultConfig())
	err := n.Load(nav.Layout{
		Width:  9,
		Height: 3,
		Blocked: []nav.Rect{
			{X: 4 * 32, Y: 0, Width: 32, Height: 32},
			{X: 4 * 32, Y: 2 * 32, Width: 32, Height: 32},
		},
		Doors: []nav.Door{{ID: "gate", Rect: nav.Rect{X: 4 * 32, Y: 32, Width: 32, Height: 32}}},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return n
}

func newTestViewer(t *testing.T) (*viewer, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(40, 10)
	return newViewer(screen, corridorNavigator(t)), screen
}

func press(v *viewer, r rune) bool {
	return v.handleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
}

func contentAt(screen tcell.SimulationScreen, x, y int) rune {
	mainc, _, _, _ := screen.GetContent(x, y)
	return mainc
}

func TestViewerDrawsTilesAndDoors(t *testing.T) {
	v, screen := newTestViewer(t)
	v.draw()

	if got := contentAt(screen, 4, 0); got != '#' {
		t.Fatalf("expected wall glyph at (4,0), got %q", got)
	}
	if got := contentAt(screen, 4, 1); got != '+' {
		t.Fatalf("expected open door glyph at (4,1), got %q", got)
	}
	if got := contentAt(screen, 1, 1); got != '.' {
		t.Fatalf("expected floor glyph at (1,1), got %q", got)
	}
}

func TestViewerRoutesAndTogglesDoor(t *testing.T) {
	v, screen := newTestViewer(t)

	v.cursor = nav.Coord{X: 0, Y: 1}
	press(v, 's')
	v.cursor = nav.Coord{X: 8, Y: 1}
	press(v, 'g')
	if !v.route.OK {
		t.Fatalf("expected route, got %s", v.route.Reason)
	}
	if !v.routeTiles.Has(nav.Coord{X: 4, Y: 1}) {
		t.Fatalf("expected the route to cross the door tile")
	}
	v.draw()
	if got := contentAt(screen, 0, 1); got != 'S' {
		t.Fatalf("expected start marker, got %q", got)
	}
	if got := contentAt(screen, 2, 1); got != '*' {
		t.Fatalf("expected route marker at (2,1), got %q", got)
	}

	v.cursor = nav.Coord{X: 4, Y: 1}
	press(v, 'o')
	if info, _ := v.nav.Portal("gate"); info.Open {
		t.Fatalf("expected gate to close")
	}
	if v.route.OK || v.route.Reason != nav.ReasonNoPath {
		t.Fatalf("expected no path after closing the gate, got %+v", v.route)
	}
	if v.routeTiles.Size() != 0 {
		t.Fatalf("expected route overlay to clear")
	}
	v.draw()
	if got := contentAt(screen, 4, 1); got != 'x' {
		t.Fatalf("expected closed door glyph, got %q", got)
	}
}

func TestViewerTogglesIndoorAndMovesWithinBounds(t *testing.T) {
	v, _ := newTestViewer(t)

	press(v, 'h')
	press(v, 'k')
	if v.cursor != (nav.Coord{}) {
		t.Fatalf("expected cursor to stay at origin, got %+v", v.cursor)
	}
	press(v, 'j')
	press(v, 'i')
	if info, _ := v.nav.Region(0); !info.Indoor {
		t.Fatalf("expected region 0 to become indoor")
	}
	if ch, _ := v.cell(nav.Coord{X: 1, Y: 1}); ch != ':' {
		t.Fatalf("expected indoor glyph, got %q", ch)
	}
	if !press(v, 'q') {
		t.Fatalf("expected q to quit")
	}
}

func TestTraceRouteCoversSegments(t *testing.T) {
	tiles := mapset.New[nav.Coord]()
	traceRoute([]nav.Point{{X: 16, Y: 16}, {X: 144, Y: 16}}, 32, tiles)
	if tiles.Size() != 5 {
		t.Fatalf("expected 5 tiles along the segment, got %d", tiles.Size())
	}
	for col := 0; col <= 4; col++ {
		if !tiles.Has(nav.Coord{X: col, Y: 0}) {
			t.Fatalf("expected tile (%d,0) on the route", col)
		}
	}
}

func TestScrollOrigin(t *testing.T) {
	cases := []struct {
		cursor, view, total, want int
	}{
		{cursor: 3, view: 10, total: 8, want: 0},
		{cursor: 2, view: 10, total: 100, want: 0},
		{cursor: 50, view: 10, total: 100, want: 45},
		{cursor: 99, view: 10, total: 100, want: 90},
	}
	for _, tc := range cases {
		if got := scrollOrigin(tc.cursor, tc.view, tc.total); got != tc.want {
			t.Fatalf("scrollOrigin(%d, %d, %d) = %d, want %d", tc.cursor, tc.view, tc.total, got, tc.want)
		}
	}
}
