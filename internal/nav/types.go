package nav

import "math"

// DefaultTileSize is the width of one tile in world units.
const DefaultTileSize = 32.0

// MaxGridDim bounds either grid dimension.
const MaxGridDim = 4096

// NoRegion marks tiles that belong to no region (blocked and door tiles).
const NoRegion = -1

// Point is a position in continuous world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Coord addresses a tile by column and row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned rectangle in world units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Door is a rectangle of door tiles tagged with a stable identifier.
type Door struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// Layout is the construction input of a navigator: grid dimensions in
// tiles, the tile size and the obstacle/door geometry in world units.
type Layout struct {
	Width    int
	Height   int
	TileSize float64
	Blocked  []Rect
	Doors    []Door
}

// TileKind classifies a tile.
type TileKind uint8

const (
	TileWalkable TileKind = iota
	TileBlocked
	TileDoor
)

func (k TileKind) String() string {
	switch k {
	case TileWalkable:
		return "walkable"
	case TileBlocked:
		return "blocked"
	case TileDoor:
		return "door"
	default:
		return "unknown"
	}
}

// Tile is a read-only view of one grid cell.
type Tile struct {
	Coord  Coord
	Kind   TileKind
	Region int // NoRegion unless Kind is TileWalkable and regions are built
}

type navNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var navNeighborOffsets = [...]navNeighbor{
	{col: 0, row: -1, cost: 1, diagonal: false},
	{col: 1, row: 0, cost: 1, diagonal: false},
	{col: 0, row: 1, cost: 1, diagonal: false},
	{col: -1, row: 0, cost: 1, diagonal: false},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// octile is the admissible 8-directional distance used both as the A*
// heuristic and as the portal graph's leg estimate.
func octile(ax, ay, bx, by float64) float64 {
	dx := math.Abs(ax - bx)
	dy := math.Abs(ay - by)
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}
