package nav

import (
	"math"
	"sort"
	"strconv"

	"github.com/zyedidia/generic/mapset"
)

// Portal is a run of door tiles joining exactly two regions.
type Portal struct {
	ID             string
	Source         string // door id the run came from
	Regions        [2]int // ascending
	Tiles          []Coord
	Center         Point // centroid of the tile centers, world units
	Open           bool
	CostMultiplier float64

	index  int
	anchor int   // tile index closest to the centroid; legs end and start here
	pin    Point // cell-space point every route through the portal keeps
	center Point // cell-space centroid
}

// PortalInfo is a detached copy of a portal handed to callers.
type PortalInfo struct {
	ID             string  `json:"id"`
	Source         string  `json:"source"`
	Regions        [2]int  `json:"regions"`
	Tiles          []Coord `json:"tiles"`
	Center         Point   `json:"center"`
	Open           bool    `json:"open"`
	CostMultiplier float64 `json:"costMultiplier"`
}

func (p *Portal) info() PortalInfo {
	return PortalInfo{
		ID:             p.ID,
		Source:         p.Source,
		Regions:        p.Regions,
		Tiles:          append([]Coord(nil), p.Tiles...),
		Center:         p.Center,
		Open:           p.Open,
		CostMultiplier: p.CostMultiplier,
	}
}

// other returns the region on the far side of the portal from region.
func (p *Portal) other(region int) int {
	if p.Regions[0] == region {
		return p.Regions[1]
	}
	return p.Regions[0]
}

type diagnosticKind int

const (
	diagnosticDiscarded diagnosticKind = iota
	diagnosticAmbiguous
)

// portalDiagnostic records a door run that did not map cleanly onto a
// region pair.
type portalDiagnostic struct {
	kind    diagnosticKind
	source  string
	tiles   []Coord
	regions []int
}

type regionContact struct {
	region int
	count  int
}

type doorRun struct {
	door     int32
	tiles    []int
	contacts []regionContact
}

// portalRun is the part of a door run that borders one region pair.
type portalRun struct {
	door  int32
	tiles []int
	pair  [2]int
}

// maxPinOffset bounds the distance in tiles between a portal's pinned
// waypoint and its centroid.
const maxPinOffset = 0.5

// buildPortals groups door tiles into runs, splits each run by the region
// pair its tiles border and links the surviving portals into their regions.
func buildPortals(g *grid, regions []*Region) ([]*Portal, []portalDiagnostic) {
	runs := collectDoorRuns(g)

	var (
		pieces      []portalRun
		diagnostics []portalDiagnostic
	)
	for _, run := range runs {
		if len(run.contacts) < 2 {
			diagnostics = append(diagnostics, portalDiagnostic{
				kind:    diagnosticDiscarded,
				source:  g.doorIDs[run.door],
				tiles:   coordsOf(g, run.tiles),
				regions: contactRegions(run.contacts),
			})
			continue
		}
		split, ambiguous := splitRun(g, run)
		if len(ambiguous) > 0 {
			diagnostics = append(diagnostics, portalDiagnostic{
				kind:    diagnosticAmbiguous,
				source:  g.doorIDs[run.door],
				tiles:   coordsOf(g, ambiguous),
				regions: contactRegions(contactsWithin(g, ambiguous, run.tiles)),
			})
		}
		for _, piece := range split {
			if !bordersPair(contactsWithin(g, piece.tiles, piece.tiles), piece.pair) {
				diagnostics = append(diagnostics, portalDiagnostic{
					kind:    diagnosticDiscarded,
					source:  g.doorIDs[piece.door],
					tiles:   coordsOf(g, piece.tiles),
					regions: piece.pair[:],
				})
				continue
			}
			pieces = append(pieces, piece)
		}
	}

	var placed []*Portal
	var placedTiles [][]int
	for _, piece := range pieces {
		portal := &Portal{
			Source:         g.doorIDs[piece.door],
			Regions:        piece.pair,
			Tiles:          coordsOf(g, piece.tiles),
			Open:           true,
			CostMultiplier: 1,
		}
		if !placePortal(g, portal, piece.tiles) {
			diagnostics = append(diagnostics, portalDiagnostic{
				kind:    diagnosticDiscarded,
				source:  portal.Source,
				tiles:   portal.Tiles,
				regions: piece.pair[:],
			})
			continue
		}
		placed = append(placed, portal)
		placedTiles = append(placedTiles, piece.tiles)
	}

	perSource := make(map[string]int)
	for _, portal := range placed {
		perSource[portal.Source]++
	}
	suffix := make(map[string]int)
	portals := make([]*Portal, 0, len(placed))
	for i, portal := range placed {
		portal.ID = portal.Source
		if perSource[portal.Source] > 1 {
			suffix[portal.Source]++
			portal.ID = portal.Source + "#" + strconv.Itoa(suffix[portal.Source])
		}
		portal.index = len(portals)
		for _, idx := range placedTiles[i] {
			g.portalOf[idx] = int32(portal.index)
		}
		regions[portal.Regions[0]].Portals.Put(portal.ID)
		regions[portal.Regions[1]].Portals.Put(portal.ID)
		portals = append(portals, portal)
	}
	return portals, diagnostics
}

// collectDoorRuns flood fills 8-connected door tiles sharing a door id and
// counts, per run, how many tile contacts it has with each region.
func collectDoorRuns(g *grid) []doorRun {
	visited := make([]bool, len(g.kinds))
	var runs []doorRun
	for seed := range g.kinds {
		if g.kinds[seed] != TileDoor || visited[seed] {
			continue
		}
		door := g.doorOf[seed]
		visited[seed] = true
		queue := []int{seed}
		var tiles []int
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			tiles = append(tiles, current)
			col, row := current%g.cols, current/g.cols
			for _, delta := range navNeighborOffsets {
				nc, nr := col+delta.col, row+delta.row
				if !g.inBounds(nc, nr) {
					continue
				}
				idx := g.index(nc, nr)
				if visited[idx] || g.kinds[idx] != TileDoor || g.doorOf[idx] != door {
					continue
				}
				visited[idx] = true
				queue = append(queue, idx)
			}
		}
		sort.Ints(tiles)
		runs = append(runs, doorRun{door: door, tiles: tiles, contacts: contactsWithin(g, tiles, tiles)})
	}
	return runs
}

// splitRun labels every tile of a run with the region pair it borders and
// returns one piece per 8-connected group of equally labelled tiles, in
// row-major order of each group's first tile. A tile bordering three or more
// regions takes its two strongest contacts and is returned as ambiguous. A
// tile bordering fewer than two inherits the label of the nearest labelled
// tile. When no tile borders two regions the whole run joins its two
// strongest contacts.
func splitRun(g *grid, run doorRun) ([]portalRun, []int) {
	inRun := mapset.New[int]()
	for _, idx := range run.tiles {
		inRun.Put(idx)
	}

	labels := make(map[int][2]int, len(run.tiles))
	var ambiguous, queue []int
	for _, idx := range run.tiles {
		counts := make(map[int]int)
		countContacts(g, idx, inRun, counts)
		contacts := sortContacts(counts)
		if len(contacts) < 2 {
			continue
		}
		if len(contacts) > 2 {
			ambiguous = append(ambiguous, idx)
		}
		labels[idx] = orderedPair(contacts[0].region, contacts[1].region)
		queue = append(queue, idx)
	}
	if len(queue) == 0 {
		if len(run.contacts) > 2 {
			ambiguous = run.tiles
		}
		pair := orderedPair(run.contacts[0].region, run.contacts[1].region)
		return []portalRun{{door: run.door, tiles: run.tiles, pair: pair}}, ambiguous
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		eachRunNeighbor(g, current, inRun, func(next int) {
			if _, ok := labels[next]; ok {
				return
			}
			labels[next] = labels[current]
			queue = append(queue, next)
		})
	}

	visited := mapset.New[int]()
	var pieces []portalRun
	for _, seed := range run.tiles {
		if visited.Has(seed) {
			continue
		}
		visited.Put(seed)
		pair := labels[seed]
		var tiles []int
		stack := []int{seed}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tiles = append(tiles, current)
			eachRunNeighbor(g, current, inRun, func(next int) {
				if visited.Has(next) || labels[next] != pair {
					return
				}
				visited.Put(next)
				stack = append(stack, next)
			})
		}
		sort.Ints(tiles)
		pieces = append(pieces, portalRun{door: run.door, tiles: tiles, pair: pair})
	}
	return pieces, ambiguous
}

func eachRunNeighbor(g *grid, idx int, inRun mapset.Set[int], fn func(next int)) {
	col, row := idx%g.cols, idx/g.cols
	for _, delta := range navNeighborOffsets {
		nc, nr := col+delta.col, row+delta.row
		if !g.inBounds(nc, nr) {
			continue
		}
		if next := g.index(nc, nr); inRun.Has(next) {
			fn(next)
		}
	}
}

// countContacts adds, per region, the legal steps from the door tile idx
// into that region. Diagonal steps may pass tiles in passable.
func countContacts(g *grid, idx int, passable mapset.Set[int], counts map[int]int) {
	col, row := idx%g.cols, idx/g.cols
	for _, delta := range navNeighborOffsets {
		nc, nr := col+delta.col, row+delta.row
		if !g.isWalkable(nc, nr) {
			continue
		}
		region := int(g.regionOf[g.index(nc, nr)])
		allowed := func(i int) bool {
			return passable.Has(i) || (g.kinds[i] == TileWalkable && int(g.regionOf[i]) == region)
		}
		if !g.canStepDiagonal(col, row, delta, allowed) {
			continue
		}
		counts[region]++
	}
}

// contactsWithin totals the region contacts of tiles, letting diagonal steps
// pass any tile of passable. Contacts come back sorted by count descending
// then region id ascending.
func contactsWithin(g *grid, tiles, passable []int) []regionContact {
	set := mapset.New[int]()
	for _, idx := range passable {
		set.Put(idx)
	}
	counts := make(map[int]int)
	for _, idx := range tiles {
		countContacts(g, idx, set, counts)
	}
	return sortContacts(counts)
}

func sortContacts(counts map[int]int) []regionContact {
	contacts := make([]regionContact, 0, len(counts))
	for region, count := range counts {
		contacts = append(contacts, regionContact{region: region, count: count})
	}
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].count != contacts[j].count {
			return contacts[i].count > contacts[j].count
		}
		return contacts[i].region < contacts[j].region
	})
	return contacts
}

func bordersPair(contacts []regionContact, pair [2]int) bool {
	found := 0
	for _, c := range contacts {
		if c.region == pair[0] || c.region == pair[1] {
			found++
		}
	}
	return found == 2
}

func orderedPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// placePortal computes the centroid, the anchor tile and the pinned
// waypoint. The anchor is the run tile whose square lies nearest the
// centroid (ties go to the nearer tile center, then row-major order) and the
// pin is the centroid clamped into that square. It reports false when even
// the nearest point of the run is more than maxPinOffset tiles away.
func placePortal(g *grid, portal *Portal, tiles []int) bool {
	var sx, sy float64
	for _, idx := range tiles {
		c := g.cellCenter(idx)
		sx += c.X
		sy += c.Y
	}
	n := float64(len(tiles))
	portal.center = Point{X: sx / n, Y: sy / n}
	portal.Center = g.worldPoint(portal.center)

	bestSquare, bestCenter := math.Inf(1), math.Inf(1)
	for _, idx := range tiles {
		pin := clampToTile(g, idx, portal.center)
		square := math.Hypot(pin.X-portal.center.X, pin.Y-portal.center.Y)
		c := g.cellCenter(idx)
		center := math.Hypot(c.X-portal.center.X, c.Y-portal.center.Y)
		if square < bestSquare-losEpsilon || (math.Abs(square-bestSquare) <= losEpsilon && center < bestCenter) {
			bestSquare, bestCenter = square, center
			portal.anchor = idx
			portal.pin = pin
		}
	}
	return bestSquare <= maxPinOffset+losEpsilon
}

// pinInset keeps a clamped pin strictly inside its tile.
const pinInset = 1e-6

func clampToTile(g *grid, idx int, p Point) Point {
	c := g.coord(idx)
	return Point{
		X: math.Min(math.Max(p.X, float64(c.X)+pinInset), float64(c.X+1)-pinInset),
		Y: math.Min(math.Max(p.Y, float64(c.Y)+pinInset), float64(c.Y+1)-pinInset),
	}
}

func coordsOf(g *grid, tiles []int) []Coord {
	coords := make([]Coord, len(tiles))
	for i, idx := range tiles {
		coords[i] = g.coord(idx)
	}
	return coords
}

func contactRegions(contacts []regionContact) []int {
	regions := make([]int, len(contacts))
	for i, c := range contacts {
		regions[i] = c.region
	}
	return regions
}
