package nav

import "math"

const losEpsilon = 1e-9

// routePoint is a cell-space point of the raw composite path. Fixed points
// (the exact start and goal, portal pins) survive smoothing unchanged.
type routePoint struct {
	Point
	fixed bool
}

// lineOfSight walks every tile the segment a→b touches (supercover) in cell
// space. The segment is blocked when it enters a tile allowed rejects, or
// when it passes exactly through a corner whose two orthogonal tiles are both
// rejected.
func lineOfSight(g *grid, a, b Point, allowed func(idx int) bool) bool {
	col := int(math.Floor(a.X))
	row := int(math.Floor(a.Y))
	endCol := int(math.Floor(b.X))
	endRow := int(math.Floor(b.Y))
	if !g.inBounds(col, row) || !allowed(g.index(col, row)) {
		return false
	}
	if !g.inBounds(endCol, endRow) || !allowed(g.index(endCol, endRow)) {
		return false
	}

	dx := b.X - a.X
	dy := b.Y - a.Y
	stepX, stepY := 0, 0
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)
	if dx > 0 {
		stepX = 1
		tDeltaX = 1 / dx
		tMaxX = (float64(col+1) - a.X) / dx
	} else if dx < 0 {
		stepX = -1
		tDeltaX = -1 / dx
		tMaxX = (float64(col) - a.X) / dx
	}
	if dy > 0 {
		stepY = 1
		tDeltaY = 1 / dy
		tMaxY = (float64(row+1) - a.Y) / dy
	} else if dy < 0 {
		stepY = -1
		tDeltaY = -1 / dy
		tMaxY = (float64(row) - a.Y) / dy
	}

	guard := abs(endCol-col) + abs(endRow-row) + 2
	for steps := 0; (col != endCol || row != endRow) && steps <= guard; steps++ {
		switch {
		case math.Abs(tMaxX-tMaxY) < losEpsilon:
			if tMaxX > 1 {
				return true
			}
			horiz := g.inBounds(col+stepX, row) && allowed(g.index(col+stepX, row))
			vert := g.inBounds(col, row+stepY) && allowed(g.index(col, row+stepY))
			if !horiz && !vert {
				return false
			}
			col += stepX
			row += stepY
			tMaxX += tDeltaX
			tMaxY += tDeltaY
		case tMaxX < tMaxY:
			if tMaxX > 1 {
				return true
			}
			col += stepX
			tMaxX += tDeltaX
		default:
			if tMaxY > 1 {
				return true
			}
			row += stepY
			tMaxY += tDeltaY
		}
		if !g.inBounds(col, row) || !allowed(g.index(col, row)) {
			return false
		}
	}
	return col == endCol && row == endRow
}

// smoothPath drops intermediate points that are visible from the current
// anchor. Fixed points always stay and always become the next anchor.
func smoothPath(g *grid, points []routePoint, allowed func(idx int) bool) []Point {
	if len(points) == 0 {
		return nil
	}
	out := []Point{points[0].Point}
	anchor := 0
	for anchor < len(points)-1 {
		next := anchor + 1
		for next < len(points)-1 && !points[next].fixed {
			if !lineOfSight(g, points[anchor].Point, points[next+1].Point, allowed) {
				break
			}
			next++
		}
		if points[next].Point != out[len(out)-1] {
			out = append(out, points[next].Point)
		}
		anchor = next
	}
	return out
}

// polylineLength sums the Euclidean segment lengths.
func polylineLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += math.Hypot(points[i].X-points[i-1].X, points[i].Y-points[i-1].Y)
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
