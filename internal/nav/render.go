package nav

import (
	"fmt"
	"strings"
)

// Render dumps the grid as ASCII, one row per line: '#' blocked, '+' open
// portal door, '-' closed portal door, 'x' door tile without a portal and
// walkable tiles as '.' or, with regions set, their region id modulo 10.
// A summary of regions and portals follows the grid.
func (n *Navigator) Render(regions bool) string {
	if n.grid == nil {
		return "grid: not set\n"
	}
	g := n.grid
	var b strings.Builder
	fmt.Fprintf(&b, "grid %dx%d (%s)\n", g.cols, g.rows, n.state)
	for row := 0; row < g.rows; row++ {
		fmt.Fprintf(&b, "%3d: ", row)
		for col := 0; col < g.cols; col++ {
			b.WriteByte(n.glyph(g.index(col, row), regions))
		}
		b.WriteByte('\n')
	}
	if n.state != StateReady {
		return b.String()
	}
	fmt.Fprintf(&b, "regions: %d\n", len(n.regions))
	for _, r := range n.regions {
		fmt.Fprintf(&b, "  region %d: %d tiles, %d portals, indoor=%t\n", r.ID, len(r.Tiles), r.Portals.Size(), r.Indoor)
	}
	fmt.Fprintf(&b, "portals: %d\n", len(n.portals))
	for _, p := range n.portals {
		fmt.Fprintf(&b, "  %s: regions %d<->%d at (%.1f, %.1f) open=%t cost=%g\n",
			p.ID, p.Regions[0], p.Regions[1], p.Center.X, p.Center.Y, p.Open, p.CostMultiplier)
	}
	return b.String()
}

func (n *Navigator) glyph(idx int, regions bool) byte {
	g := n.grid
	switch g.kinds[idx] {
	case TileBlocked:
		return '#'
	case TileDoor:
		pi := g.portalOf[idx]
		if pi < 0 || int(pi) >= len(n.portals) {
			return 'x'
		}
		if n.portals[pi].Open {
			return '+'
		}
		return '-'
	}
	if regions && g.regionOf[idx] >= 0 {
		return byte('0' + g.regionOf[idx]%10)
	}
	return '.'
}
