package nav

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Region is a maximal 8-connected set of walkable tiles. Door tiles never
// belong to a region, so every doorway separates the regions on either side.
type Region struct {
	ID      int
	Tiles   []Coord // row-major
	Indoor  bool
	Portals mapset.Set[string]
}

// RegionInfo is a detached copy of a region handed to callers.
type RegionInfo struct {
	ID      int      `json:"id"`
	Tiles   []Coord  `json:"tiles"`
	Indoor  bool     `json:"indoor"`
	Portals []string `json:"portals"`
}

func (r *Region) info() RegionInfo {
	info := RegionInfo{
		ID:     r.ID,
		Tiles:  append([]Coord(nil), r.Tiles...),
		Indoor: r.Indoor,
	}
	info.Portals = r.portalIDs()
	return info
}

func (r *Region) portalIDs() []string {
	ids := make([]string, 0, r.Portals.Size())
	r.Portals.Each(func(id string) {
		ids = append(ids, id)
	})
	sort.Strings(ids)
	return ids
}

// canStepDiagonal applies the corner-cut rule: a diagonal step is illegal
// only when both orthogonally adjacent tiles are rejected by allowed.
func (g *grid) canStepDiagonal(col, row int, delta navNeighbor, allowed func(idx int) bool) bool {
	if !delta.diagonal {
		return true
	}
	horiz := g.inBounds(col+delta.col, row) && allowed(g.index(col+delta.col, row))
	vert := g.inBounds(col, row+delta.row) && allowed(g.index(col, row+delta.row))
	return horiz || vert
}

// buildRegions flood fills walkable tiles in row-major seed order, so region
// ids are stable for identical layouts.
func buildRegions(g *grid) []*Region {
	walkable := func(idx int) bool { return g.kinds[idx] == TileWalkable }

	var regions []*Region
	queue := make([]int, 0, 64)
	for seed := range g.kinds {
		if g.kinds[seed] != TileWalkable || g.regionOf[seed] != -1 {
			continue
		}
		id := int32(len(regions))
		region := &Region{ID: int(id), Portals: mapset.New[string]()}
		g.regionOf[seed] = id
		queue = append(queue[:0], seed)
		members := make([]int, 0, 64)
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			members = append(members, current)
			col, row := current%g.cols, current/g.cols
			for _, delta := range navNeighborOffsets {
				nc, nr := col+delta.col, row+delta.row
				if !g.inBounds(nc, nr) {
					continue
				}
				idx := g.index(nc, nr)
				if g.kinds[idx] != TileWalkable || g.regionOf[idx] != -1 {
					continue
				}
				if !g.canStepDiagonal(col, row, delta, walkable) {
					continue
				}
				g.regionOf[idx] = id
				queue = append(queue, idx)
			}
		}
		sort.Ints(members)
		region.Tiles = make([]Coord, len(members))
		for i, idx := range members {
			region.Tiles[i] = g.coord(idx)
		}
		regions = append(regions, region)
	}
	return regions
}
