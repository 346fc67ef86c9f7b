// Package mapgen builds deterministic room-and-door layouts: a lattice of
// rooms separated by one-tile walls, joined by doors along a random spanning
// tree plus extra doors on shared walls.
package mapgen

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"roomnav/internal/nav"
)

const (
	DefaultSeed         = "roomnav"
	DefaultMaxDoorWidth = 2
	minRoomInterior     = 3
	pillarMargin        = 2
	maxPlacementTries   = 64
)

var ErrInvalidConfig = errors.New("mapgen: invalid config")

type Config struct {
	Width          int // tiles
	Height         int // tiles
	TileSize       float64
	Rooms          int
	Doors          int
	MaxDoorWidth   int
	PillarsPerRoom int
	Seed           string
}

func DefaultConfig() Config {
	return Config{
		Width:        64,
		Height:       48,
		TileSize:     nav.DefaultTileSize,
		Rooms:        6,
		Doors:        9,
		MaxDoorWidth: DefaultMaxDoorWidth,
		Seed:         DefaultSeed,
	}
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.TileSize <= 0 {
		normalized.TileSize = nav.DefaultTileSize
	}
	if normalized.MaxDoorWidth <= 0 {
		normalized.MaxDoorWidth = DefaultMaxDoorWidth
	}
	if normalized.PillarsPerRoom < 0 {
		normalized.PillarsPerRoom = 0
	}
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	return normalized
}

// Room is one lattice cell; Interior is in tiles.
type Room struct {
	ID       string
	Interior Bounds
}

// Bounds is an inclusive tile rectangle.
type Bounds struct {
	MinCol, MinRow, MaxCol, MaxRow int
}

func (b Bounds) Contains(col, row int) bool {
	return col >= b.MinCol && col <= b.MaxCol && row >= b.MinRow && row <= b.MaxRow
}

// Door records which rooms a generated door joins.
type Door struct {
	ID    string
	Rooms [2]int
	Tiles Bounds
}

type Result struct {
	Layout nav.Layout
	Rooms  []Room
	Doors  []Door
}

// wall is the shared wall segment between two neighbouring rooms, excluding
// the tiles where walls cross.
type wall struct {
	rooms    [2]int
	vertical bool
	fixed    int // column of a vertical wall, row of a horizontal one
	lo, hi   int // inclusive span along the wall
	used     mapset.Set[int]
}

// Generate lays out cfg.Rooms rooms and cfg.Doors doors. Identical configs
// always produce identical layouts.
func Generate(cfg Config) (Result, error) {
	cfg = cfg.normalized()
	if cfg.Rooms < 1 {
		return Result{}, fmt.Errorf("%w: rooms %d", ErrInvalidConfig, cfg.Rooms)
	}
	if cfg.Doors < cfg.Rooms-1 {
		return Result{}, fmt.Errorf("%w: %d doors cannot connect %d rooms", ErrInvalidConfig, cfg.Doors, cfg.Rooms)
	}
	if cfg.Width > nav.MaxGridDim || cfg.Height > nav.MaxGridDim {
		return Result{}, fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	cols, rows := latticeShape(cfg.Rooms)
	xs := splits(cfg.Width, cols)
	ys := splits(cfg.Height, rows)
	for i := 0; i < cols; i++ {
		if xs[i+1]-xs[i]-1 < minRoomInterior {
			return Result{}, fmt.Errorf("%w: width %d too small for %d room columns", ErrInvalidConfig, cfg.Width, cols)
		}
	}
	for j := 0; j < rows; j++ {
		if ys[j+1]-ys[j]-1 < minRoomInterior {
			return Result{}, fmt.Errorf("%w: height %d too small for %d room rows", ErrInvalidConfig, cfg.Height, rows)
		}
	}

	res := Result{}
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			res.Rooms = append(res.Rooms, Room{
				ID:       fmt.Sprintf("room-%d", len(res.Rooms)+1),
				Interior: Bounds{MinCol: xs[i] + 1, MinRow: ys[j] + 1, MaxCol: xs[i+1] - 1, MaxRow: ys[j+1] - 1},
			})
		}
	}

	walls := sharedWalls(cols, rows, xs, ys)
	if cfg.Doors > 0 && len(walls) == 0 {
		return Result{}, fmt.Errorf("%w: %d doors requested for a single room", ErrInvalidConfig, cfg.Doors)
	}

	blocked := make([]bool, cfg.Width*cfg.Height)
	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			if isWallLine(col, xs) || isWallLine(row, ys) {
				blocked[row*cfg.Width+col] = true
			}
		}
	}

	doorRNG := newRNG(cfg.Seed, "doors")
	tree := spanningTree(doorRNG, cfg.Rooms, walls)
	for _, wi := range tree {
		if !placeDoor(doorRNG, &res, &walls[wi], cfg.MaxDoorWidth) {
			return Result{}, fmt.Errorf("%w: no room for a door on wall %v", ErrInvalidConfig, walls[wi].rooms)
		}
	}
	for attempts := 0; len(res.Doors) < cfg.Doors; attempts++ {
		if attempts > cfg.Doors*maxPlacementTries {
			return Result{}, fmt.Errorf("%w: placed %d of %d doors", ErrInvalidConfig, len(res.Doors), cfg.Doors)
		}
		placeDoor(doorRNG, &res, &walls[doorRNG.Intn(len(walls))], cfg.MaxDoorWidth)
	}
	for _, door := range res.Doors {
		for row := door.Tiles.MinRow; row <= door.Tiles.MaxRow; row++ {
			for col := door.Tiles.MinCol; col <= door.Tiles.MaxCol; col++ {
				blocked[row*cfg.Width+col] = false
			}
		}
	}

	if cfg.PillarsPerRoom > 0 {
		pillarRNG := newRNG(cfg.Seed, "pillars")
		for _, room := range res.Rooms {
			placePillars(pillarRNG, blocked, cfg.Width, room.Interior, cfg.PillarsPerRoom)
		}
	}

	ts := cfg.TileSize
	res.Layout = nav.Layout{Width: cfg.Width, Height: cfg.Height, TileSize: ts}
	for _, b := range mergeRects(blocked, cfg.Width, cfg.Height) {
		res.Layout.Blocked = append(res.Layout.Blocked, tileRect(b, ts))
	}
	for _, door := range res.Doors {
		res.Layout.Doors = append(res.Layout.Doors, nav.Door{ID: door.ID, Rect: tileRect(door.Tiles, ts)})
	}
	return res, nil
}

// latticeShape factors rooms into the most square cols x rows grid with
// cols >= rows.
func latticeShape(rooms int) (int, int) {
	rows := int(math.Sqrt(float64(rooms)))
	for rows > 1 && rooms%rows != 0 {
		rows--
	}
	return rooms / rows, rows
}

// splits returns the wall lines of n equal bands across size tiles,
// including both outer walls.
func splits(size, n int) []int {
	lines := make([]int, n+1)
	for k := 0; k <= n; k++ {
		lines[k] = k * (size - 1) / n
	}
	return lines
}

func isWallLine(v int, lines []int) bool {
	i := sort.SearchInts(lines, v)
	return i < len(lines) && lines[i] == v
}

func sharedWalls(cols, rows int, xs, ys []int) []wall {
	var walls []wall
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			room := j*cols + i
			if i+1 < cols {
				walls = append(walls, wall{
					rooms:    [2]int{room, room + 1},
					vertical: true,
					fixed:    xs[i+1],
					lo:       ys[j] + 1,
					hi:       ys[j+1] - 1,
					used:     mapset.New[int](),
				})
			}
			if j+1 < rows {
				walls = append(walls, wall{
					rooms: [2]int{room, room + cols},
					fixed: ys[j+1],
					lo:    xs[i] + 1,
					hi:    xs[i+1] - 1,
					used:  mapset.New[int](),
				})
			}
		}
	}
	return walls
}

// spanningTree picks walls joining every room, Kruskal style over a
// shuffled wall order.
func spanningTree(rng *rand.Rand, rooms int, walls []wall) []int {
	parent := make([]int, rooms)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(v int) int {
		if parent[v] != v {
			parent[v] = find(parent[v])
		}
		return parent[v]
	}
	var tree []int
	for _, wi := range rng.Perm(len(walls)) {
		a, b := find(walls[wi].rooms[0]), find(walls[wi].rooms[1])
		if a == b {
			continue
		}
		parent[a] = b
		tree = append(tree, wi)
	}
	return tree
}

// placeDoor cuts a door into w, keeping at least one wall tile between it
// and any other door on the same wall.
func placeDoor(rng *rand.Rand, res *Result, w *wall, maxWidth int) bool {
	span := w.hi - w.lo + 1
	for try := 0; try < maxPlacementTries; try++ {
		width := 1 + rng.Intn(maxWidth)
		if width > span {
			width = span
		}
		start := w.lo + rng.Intn(span-width+1)
		free := true
		for v := start - 1; v <= start+width; v++ {
			if w.used.Has(v) {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for v := start; v < start+width; v++ {
			w.used.Put(v)
		}
		door := Door{ID: fmt.Sprintf("door-%d", len(res.Doors)+1), Rooms: w.rooms}
		if w.vertical {
			door.Tiles = Bounds{MinCol: w.fixed, MaxCol: w.fixed, MinRow: start, MaxRow: start + width - 1}
		} else {
			door.Tiles = Bounds{MinCol: start, MaxCol: start + width - 1, MinRow: w.fixed, MaxRow: w.fixed}
		}
		res.Doors = append(res.Doors, door)
		return true
	}
	return false
}

// placePillars drops rectangular obstacles inside a room, keeping a free
// ring along the walls and a gap between pillars so the room stays one
// connected region.
func placePillars(rng *rand.Rand, blocked []bool, width int, room Bounds, count int) {
	inner := Bounds{
		MinCol: room.MinCol + pillarMargin,
		MinRow: room.MinRow + pillarMargin,
		MaxCol: room.MaxCol - pillarMargin,
		MaxRow: room.MaxRow - pillarMargin,
	}
	if inner.MaxCol < inner.MinCol || inner.MaxRow < inner.MinRow {
		return
	}
	var placed []Bounds
	for try := 0; len(placed) < count && try < count*maxPlacementTries; try++ {
		w := 1 + rng.Intn(min(4, inner.MaxCol-inner.MinCol+1))
		h := 1 + rng.Intn(min(4, inner.MaxRow-inner.MinRow+1))
		col := randomSpan(rng, inner.MinCol, inner.MaxCol-w+1)
		row := randomSpan(rng, inner.MinRow, inner.MaxRow-h+1)
		candidate := Bounds{MinCol: col, MinRow: row, MaxCol: col + w - 1, MaxRow: row + h - 1}
		free := true
		for _, other := range placed {
			if candidate.MinCol <= other.MaxCol+1 && candidate.MaxCol >= other.MinCol-1 &&
				candidate.MinRow <= other.MaxRow+1 && candidate.MaxRow >= other.MinRow-1 {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		placed = append(placed, candidate)
		for r := candidate.MinRow; r <= candidate.MaxRow; r++ {
			for c := candidate.MinCol; c <= candidate.MaxCol; c++ {
				blocked[r*width+c] = true
			}
		}
	}
}

// mergeRects covers the blocked tiles with rectangles: horizontal runs per
// row, stacked while consecutive rows repeat the same run.
func mergeRects(blocked []bool, width, height int) []Bounds {
	type run struct{ lo, hi int }
	var (
		out    []Bounds
		active = map[run]int{} // run -> index in out, still growing
	)
	for row := 0; row < height; row++ {
		next := map[run]int{}
		for col := 0; col < width; {
			if !blocked[row*width+col] {
				col++
				continue
			}
			start := col
			for col < width && blocked[row*width+col] {
				col++
			}
			r := run{lo: start, hi: col - 1}
			if i, ok := active[r]; ok {
				out[i].MaxRow = row
				next[r] = i
				continue
			}
			out = append(out, Bounds{MinCol: r.lo, MaxCol: r.hi, MinRow: row, MaxRow: row})
			next[r] = len(out) - 1
		}
		active = next
	}
	return out
}

func tileRect(b Bounds, ts float64) nav.Rect {
	return nav.Rect{
		X:      float64(b.MinCol) * ts,
		Y:      float64(b.MinRow) * ts,
		Width:  float64(b.MaxCol-b.MinCol+1) * ts,
		Height: float64(b.MaxRow-b.MinRow+1) * ts,
	}
}
