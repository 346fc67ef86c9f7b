package nav

import (
	"reflect"
	"testing"
)

func TestFollowerAdvancesWithinTolerance(t *testing.T) {
	resp := PathResponse{
		OK:        true,
		Waypoints: []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
	}
	f := NewFollower(resp, 0, 0)
	resp.Waypoints[1] = Point{X: -1, Y: -1}

	wp, ok := f.Next(Point{X: 5, Y: 0})
	if !ok || wp != (Point{X: 100, Y: 0}) {
		t.Fatalf("expected second waypoint after the first is reached, got %+v ok=%v", wp, ok)
	}
	if got := f.Remaining(); !reflect.DeepEqual(got, []Point{{X: 100, Y: 0}, {X: 100, Y: 100}}) {
		t.Fatalf("unexpected remaining waypoints %v", got)
	}

	wp, ok = f.Next(Point{X: 100, Y: 3})
	if !ok || wp != (Point{X: 100, Y: 100}) {
		t.Fatalf("expected last waypoint, got %+v ok=%v", wp, ok)
	}
	if f.Done() {
		t.Fatalf("expected follower to still be moving")
	}
	if _, ok := f.Next(Point{X: 100, Y: 99}); ok {
		t.Fatalf("expected route to finish")
	}
	if !f.Done() || len(f.Remaining()) != 0 {
		t.Fatalf("expected follower to be done")
	}
}

func TestFollowerIgnoresFailedResponse(t *testing.T) {
	f := NewFollower(failure(ReasonNoPath, 3), 0, 10)
	if !f.Done() {
		t.Fatalf("expected follower for a failed response to be done")
	}
	if _, ok := f.Next(Point{}); ok {
		t.Fatalf("expected no waypoint")
	}
}

func TestNavigatorFollowUsesMapTileSize(t *testing.T) {
	nav := New(DefaultConfig())
	if err := nav.Load(Layout{Width: 10, Height: 4, TileSize: 8}); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	resp := nav.FindPath(PathQuery{Start: Point{X: 4, Y: 4}, Goal: Point{X: 76, Y: 4}})
	if !resp.OK {
		t.Fatalf("expected route, got %s", resp.Reason)
	}
	f := nav.Follow(resp)

	// Half a tile is 4 world units here, not 16.
	wp, ok := f.Next(Point{X: 9, Y: 4})
	if !ok || wp != (Point{X: 4, Y: 4}) {
		t.Fatalf("expected the start waypoint to stay pending 5 units away, got %+v ok=%v", wp, ok)
	}
	wp, ok = f.Next(Point{X: 7, Y: 4})
	if !ok || wp != (Point{X: 76, Y: 4}) {
		t.Fatalf("expected to advance within 4 units, got %+v ok=%v", wp, ok)
	}
}

func TestNewFollowerScalesToleranceByTileSize(t *testing.T) {
	resp := PathResponse{OK: true, Waypoints: []Point{{X: 0, Y: 0}, {X: 50, Y: 0}}}
	f := NewFollower(resp, 10, 1)
	if wp, _ := f.Next(Point{X: 11, Y: 0}); wp != (Point{X: 0, Y: 0}) {
		t.Fatalf("expected 11 units to be outside a 10 unit radius, got %+v", wp)
	}
	if wp, _ := f.Next(Point{X: 9, Y: 0}); wp != (Point{X: 50, Y: 0}) {
		t.Fatalf("expected 9 units to reach the first waypoint, got %+v", wp)
	}
}
