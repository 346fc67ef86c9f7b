package nav

import "math"

// DefaultTolerance is the arrival radius of a Follower in tiles.
const DefaultTolerance = 0.5

// Follower steps an agent along the waypoints of a cached response,
// advancing once the agent is within tolerance of the current waypoint.
type Follower struct {
	waypoints []Point
	next      int
	tolerance float64 // world units
}

// NewFollower copies the response's waypoints. tolerance is in tiles of
// tileSize world units; zero or less selects DefaultTolerance and
// DefaultTileSize respectively.
func NewFollower(resp PathResponse, tileSize, tolerance float64) *Follower {
	if !(tileSize > 0) {
		tileSize = DefaultTileSize
	}
	if !(tolerance > 0) {
		tolerance = DefaultTolerance
	}
	f := &Follower{tolerance: tolerance * tileSize}
	if resp.OK {
		f.waypoints = append([]Point(nil), resp.Waypoints...)
	}
	return f
}

// Next returns the waypoint to head for from pos, skipping every waypoint
// already within tolerance. ok is false once the route is finished.
func (f *Follower) Next(pos Point) (Point, bool) {
	for f.next < len(f.waypoints) {
		wp := f.waypoints[f.next]
		if math.Hypot(wp.X-pos.X, wp.Y-pos.Y) > f.tolerance {
			return wp, true
		}
		f.next++
	}
	return Point{}, false
}

func (f *Follower) Done() bool {
	return f.next >= len(f.waypoints)
}

// Remaining returns the waypoints not yet reached.
func (f *Follower) Remaining() []Point {
	return append([]Point(nil), f.waypoints[f.next:]...)
}
