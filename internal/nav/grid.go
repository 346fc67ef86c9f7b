package nav

import (
	"fmt"
	"math"
)

// grid is the classified tile map. Region and portal assignments are filled
// in by buildTopology and reset whenever the grid is replaced.
type grid struct {
	cols, rows int
	tileSize   float64
	kinds      []TileKind
	doorOf     []int32 // index into doorIDs for door tiles, -1 otherwise
	doorIDs    []string
	regionOf   []int32 // region id for walkable tiles, -1 otherwise
	portalOf   []int32 // portal index for door tiles that formed a portal, -1 otherwise
}

func newGrid(layout Layout) (*grid, error) {
	if layout.Width < 1 || layout.Height < 1 || layout.Width > MaxGridDim || layout.Height > MaxGridDim {
		return nil, fmt.Errorf("%w: grid %dx%d outside [1,%d]", ErrInvalidLayout, layout.Width, layout.Height, MaxGridDim)
	}
	tileSize := layout.TileSize
	if tileSize == 0 {
		tileSize = DefaultTileSize
	}
	if tileSize < 0 || math.IsNaN(tileSize) || math.IsInf(tileSize, 0) {
		return nil, fmt.Errorf("%w: tile size %v", ErrInvalidLayout, layout.TileSize)
	}

	size := layout.Width * layout.Height
	g := &grid{
		cols:     layout.Width,
		rows:     layout.Height,
		tileSize: tileSize,
		kinds:    make([]TileKind, size),
		doorOf:   make([]int32, size),
		regionOf: make([]int32, size),
		portalOf: make([]int32, size),
	}
	for i := 0; i < size; i++ {
		g.doorOf[i] = -1
		g.regionOf[i] = -1
		g.portalOf[i] = -1
	}

	for i, rect := range layout.Blocked {
		minCol, minRow, maxCol, maxRow, err := g.snap(rect)
		if err != nil {
			return nil, fmt.Errorf("blocked rect %d: %w", i, err)
		}
		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				g.kinds[g.index(col, row)] = TileBlocked
			}
		}
	}

	doorIndex := make(map[string]int32, len(layout.Doors))
	for i, door := range layout.Doors {
		if door.ID == "" {
			return nil, fmt.Errorf("%w: door %d has no id", ErrInvalidLayout, i)
		}
		minCol, minRow, maxCol, maxRow, err := g.snap(door.Rect)
		if err != nil {
			return nil, fmt.Errorf("door %q: %w", door.ID, err)
		}
		id, ok := doorIndex[door.ID]
		if !ok {
			id = int32(len(g.doorIDs))
			doorIndex[door.ID] = id
			g.doorIDs = append(g.doorIDs, door.ID)
		}
		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				idx := g.index(col, row)
				switch {
				case g.kinds[idx] == TileBlocked:
					return nil, fmt.Errorf("%w: door %q overlaps blocked tile (%d,%d)", ErrInvalidLayout, door.ID, col, row)
				case g.kinds[idx] == TileDoor && g.doorOf[idx] != id:
					return nil, fmt.Errorf("%w: door %q overlaps door %q at (%d,%d)", ErrInvalidLayout, door.ID, g.doorIDs[g.doorOf[idx]], col, row)
				}
				g.kinds[idx] = TileDoor
				g.doorOf[idx] = id
			}
		}
	}

	return g, nil
}

// snap converts a world rectangle into the inclusive tile range it overlaps,
// clipped to the grid.
func (g *grid) snap(rect Rect) (minCol, minRow, maxCol, maxRow int, err error) {
	if !(rect.Width > 0) || !(rect.Height > 0) {
		return 0, 0, 0, 0, fmt.Errorf("%w: rect %+v has no area", ErrInvalidLayout, rect)
	}
	minCol = int(math.Floor(rect.X / g.tileSize))
	minRow = int(math.Floor(rect.Y / g.tileSize))
	maxCol = int(math.Ceil((rect.X+rect.Width)/g.tileSize)) - 1
	maxRow = int(math.Ceil((rect.Y+rect.Height)/g.tileSize)) - 1
	if maxCol < 0 || maxRow < 0 || minCol >= g.cols || minRow >= g.rows {
		return 0, 0, 0, 0, fmt.Errorf("%w: rect %+v outside %dx%d grid", ErrInvalidLayout, rect, g.cols, g.rows)
	}
	if minCol < 0 {
		minCol = 0
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxCol >= g.cols {
		maxCol = g.cols - 1
	}
	if maxRow >= g.rows {
		maxRow = g.rows - 1
	}
	return minCol, minRow, maxCol, maxRow, nil
}

func (g *grid) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *grid) index(col, row int) int {
	return row*g.cols + col
}

func (g *grid) coord(idx int) Coord {
	return Coord{X: idx % g.cols, Y: idx / g.cols}
}

func (g *grid) isWalkable(col, row int) bool {
	return g.inBounds(col, row) && g.kinds[g.index(col, row)] == TileWalkable
}

// locate maps a world point onto its tile. Points outside the grid report
// ok=false rather than being clamped.
func (g *grid) locate(p Point) (int, bool) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return 0, false
	}
	col := int(math.Floor(p.X / g.tileSize))
	row := int(math.Floor(p.Y / g.tileSize))
	if !g.inBounds(col, row) {
		return 0, false
	}
	return g.index(col, row), true
}

// cellPoint converts a world point into cell space, where tile (c, r)
// covers [c, c+1) x [r, r+1).
func (g *grid) cellPoint(p Point) Point {
	return Point{X: p.X / g.tileSize, Y: p.Y / g.tileSize}
}

// worldPoint is the inverse of cellPoint.
func (g *grid) worldPoint(p Point) Point {
	return Point{X: p.X * g.tileSize, Y: p.Y * g.tileSize}
}

// cellCenter is the cell-space center of a tile.
func (g *grid) cellCenter(idx int) Point {
	return Point{X: float64(idx%g.cols) + 0.5, Y: float64(idx/g.cols) + 0.5}
}

func (g *grid) tile(idx int) Tile {
	return Tile{Coord: g.coord(idx), Kind: g.kinds[idx], Region: int(g.regionOf[idx])}
}

// clearTopology drops region and portal assignments ahead of a rebuild.
func (g *grid) clearTopology() {
	for i := range g.regionOf {
		g.regionOf[i] = -1
		g.portalOf[i] = -1
	}
}
