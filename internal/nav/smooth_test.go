package nav

import (
	"math"
	"reflect"
	"testing"
)

func walkableOnly(g *grid) func(int) bool {
	return func(idx int) bool { return g.kinds[idx] == TileWalkable }
}

func TestLineOfSight(t *testing.T) {
	g, err := newGrid(Layout{Width: 5, Height: 3, Blocked: []Rect{tileRect(2, 1, 1, 1)}})
	if err != nil {
		t.Fatalf("newGrid returned error: %v", err)
	}
	allowed := walkableOnly(g)
	cases := []struct {
		name string
		a, b Point
		want bool
	}{
		{"open row", Point{X: 0.5, Y: 0.5}, Point{X: 4.5, Y: 0.5}, true},
		{"through obstacle", Point{X: 0.5, Y: 1.5}, Point{X: 4.5, Y: 1.5}, false},
		{"grazing obstacle", Point{X: 0.5, Y: 0.5}, Point{X: 4.5, Y: 1.5}, false},
		{"same tile", Point{X: 0.2, Y: 0.2}, Point{X: 0.8, Y: 0.7}, true},
		{"endpoint blocked", Point{X: 0.5, Y: 0.5}, Point{X: 2.5, Y: 1.5}, false},
	}
	for _, tc := range cases {
		if got := lineOfSight(g, tc.a, tc.b, allowed); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestLineOfSightExactCorner(t *testing.T) {
	pinched, err := newGrid(Layout{Width: 2, Height: 2, Blocked: []Rect{tileRect(1, 0, 1, 1), tileRect(0, 1, 1, 1)}})
	if err != nil {
		t.Fatalf("newGrid returned error: %v", err)
	}
	if lineOfSight(pinched, Point{X: 0.5, Y: 0.5}, Point{X: 1.5, Y: 1.5}, walkableOnly(pinched)) {
		t.Fatalf("expected corner between two blocked tiles to block sight")
	}

	halfOpen, err := newGrid(Layout{Width: 2, Height: 2, Blocked: []Rect{tileRect(1, 0, 1, 1)}})
	if err != nil {
		t.Fatalf("newGrid returned error: %v", err)
	}
	if !lineOfSight(halfOpen, Point{X: 0.5, Y: 0.5}, Point{X: 1.5, Y: 1.5}, walkableOnly(halfOpen)) {
		t.Fatalf("expected corner with one open side to pass")
	}
}

func TestSmoothPathKeepsFixedPoints(t *testing.T) {
	g, err := newGrid(Layout{Width: 5, Height: 1})
	if err != nil {
		t.Fatalf("newGrid returned error: %v", err)
	}
	route := func(fixedMiddle bool) []routePoint {
		points := make([]routePoint, 5)
		for i := range points {
			points[i] = routePoint{Point: Point{X: float64(i) + 0.5, Y: 0.5}}
		}
		points[0].fixed = true
		points[4].fixed = true
		points[2].fixed = fixedMiddle
		return points
	}

	got := smoothPath(g, route(false), walkableOnly(g))
	want := []Point{{X: 0.5, Y: 0.5}, {X: 4.5, Y: 0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = smoothPath(g, route(true), walkableOnly(g))
	want = []Point{{X: 0.5, Y: 0.5}, {X: 2.5, Y: 0.5}, {X: 4.5, Y: 0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSmoothPathKeepsCornerAroundObstacle(t *testing.T) {
	g, err := newGrid(Layout{Width: 3, Height: 3, Blocked: []Rect{tileRect(1, 0, 2, 2)}})
	if err != nil {
		t.Fatalf("newGrid returned error: %v", err)
	}
	points := []routePoint{
		{Point: Point{X: 0.5, Y: 0.5}, fixed: true},
		{Point: Point{X: 0.5, Y: 1.5}},
		{Point: Point{X: 0.5, Y: 2.5}},
		{Point: Point{X: 1.5, Y: 2.5}},
		{Point: Point{X: 2.5, Y: 2.5}, fixed: true},
	}
	got := smoothPath(g, points, walkableOnly(g))
	if len(got) != 3 || got[1] != (Point{X: 0.5, Y: 2.5}) {
		t.Fatalf("expected to turn at the free corner, got %v", got)
	}
}

func TestPolylineLength(t *testing.T) {
	got := polylineLength([]Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}})
	if math.Abs(got-11) > 1e-9 {
		t.Fatalf("expected 11, got %f", got)
	}
	if polylineLength(nil) != 0 {
		t.Fatalf("expected empty polyline to have zero length")
	}
}
