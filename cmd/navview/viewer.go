package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/zyedidia/generic/mapset"

	"roomnav/internal/nav"
)

const statusRows = 2

var regionColors = []tcell.Color{
	tcell.ColorGreen,
	tcell.ColorBlue,
	tcell.ColorTeal,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorNavy,
	tcell.ColorMaroon,
	tcell.ColorSilver,
}

var (
	styleBlocked    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDoorOpen   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleDoorClosed = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleRoute      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

type viewer struct {
	screen tcell.Screen
	nav    *nav.Navigator

	width, height int
	tileSize      float64

	cursor      nav.Coord
	start, goal *nav.Coord
	route       nav.PathResponse
	routeTiles  mapset.Set[nav.Coord]
	showRegions bool
	status      string
}

func newViewer(screen tcell.Screen, n *nav.Navigator) *viewer {
	stats := n.Stats()
	return &viewer{
		screen:      screen,
		nav:         n,
		width:       stats.Width,
		height:      stats.Height,
		tileSize:    stats.TileSize,
		routeTiles:  mapset.New[nav.Coord](),
		showRegions: true,
		status:      "arrows/hjkl move  s start  g goal  o door  i indoor  r regions  q quit",
	}
}

// handleKey applies one key press and reports whether the viewer should quit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.move(0, -1)
	case tcell.KeyDown:
		v.move(0, 1)
	case tcell.KeyLeft:
		v.move(-1, 0)
	case tcell.KeyRight:
		v.move(1, 0)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'k':
			v.move(0, -1)
		case 'j':
			v.move(0, 1)
		case 'h':
			v.move(-1, 0)
		case 'l':
			v.move(1, 0)
		case 's':
			c := v.cursor
			v.start = &c
			v.recompute()
		case 'g':
			c := v.cursor
			v.goal = &c
			v.recompute()
		case 'o':
			v.toggleDoor()
		case 'i':
			v.toggleIndoor()
		case 'r':
			v.showRegions = !v.showRegions
		}
	}
	return false
}

func (v *viewer) move(dx, dy int) {
	col := v.cursor.X + dx
	row := v.cursor.Y + dy
	if col < 0 || row < 0 || col >= v.width || row >= v.height {
		return
	}
	v.cursor = nav.Coord{X: col, Y: row}
}

func (v *viewer) center(c nav.Coord) nav.Point {
	return nav.Point{
		X: (float64(c.X) + 0.5) * v.tileSize,
		Y: (float64(c.Y) + 0.5) * v.tileSize,
	}
}

func (v *viewer) toggleDoor() {
	id, ok := v.nav.PortalAt(v.cursor.X, v.cursor.Y)
	if !ok {
		v.status = "no portal under cursor"
		return
	}
	info, _ := v.nav.Portal(id)
	if err := v.nav.SetPortalOpen(id, !info.Open); err != nil {
		v.status = err.Error()
		return
	}
	v.status = fmt.Sprintf("portal %s open=%t", id, !info.Open)
	v.recompute()
}

func (v *viewer) toggleIndoor() {
	region, ok := v.nav.RegionAt(v.center(v.cursor))
	if !ok {
		v.status = "no region under cursor"
		return
	}
	info, _ := v.nav.Region(region)
	if err := v.nav.SetRegionIndoor(region, !info.Indoor); err != nil {
		v.status = err.Error()
		return
	}
	v.status = fmt.Sprintf("region %d indoor=%t", region, !info.Indoor)
	v.recompute()
}

func (v *viewer) recompute() {
	v.routeTiles = mapset.New[nav.Coord]()
	if v.start == nil || v.goal == nil {
		return
	}
	v.route = v.nav.FindPath(nav.PathQuery{Start: v.center(*v.start), Goal: v.center(*v.goal)})
	if !v.route.OK {
		v.status = fmt.Sprintf("no route: %s", v.route.Reason)
		return
	}
	traceRoute(v.route.Waypoints, v.tileSize, v.routeTiles)
	v.status = fmt.Sprintf("route cost %.2f via %d portals, %d expanded", v.route.TotalCost, len(v.route.Portals), v.route.Expanded)
}

// traceRoute marks every tile the route polyline passes over.
func traceRoute(waypoints []nav.Point, tileSize float64, into mapset.Set[nav.Coord]) {
	mark := func(p nav.Point) {
		into.Put(nav.Coord{X: int(math.Floor(p.X / tileSize)), Y: int(math.Floor(p.Y / tileSize))})
	}
	for i, p := range waypoints {
		mark(p)
		if i == 0 {
			continue
		}
		prev := waypoints[i-1]
		dist := math.Hypot(p.X-prev.X, p.Y-prev.Y)
		steps := int(math.Ceil(dist / (tileSize / 4)))
		for s := 1; s < steps; s++ {
			t := float64(s) / float64(steps)
			mark(nav.Point{X: prev.X + (p.X-prev.X)*t, Y: prev.Y + (p.Y-prev.Y)*t})
		}
	}
}

func (v *viewer) cell(c nav.Coord) (rune, tcell.Style) {
	tile, _ := v.nav.Tile(c.X, c.Y)
	switch {
	case v.start != nil && *v.start == c:
		return 'S', styleRoute
	case v.goal != nil && *v.goal == c:
		return 'G', styleRoute
	}
	switch tile.Kind {
	case nav.TileBlocked:
		return '#', styleBlocked
	case nav.TileDoor:
		id, ok := v.nav.PortalAt(c.X, c.Y)
		if !ok {
			return '+', styleBlocked
		}
		if info, _ := v.nav.Portal(id); !info.Open {
			return 'x', styleDoorClosed
		}
		if v.routeTiles.Has(c) {
			return '*', styleDoorOpen
		}
		return '+', styleDoorOpen
	}
	if v.routeTiles.Has(c) {
		return '*', styleRoute
	}
	if !v.showRegions || tile.Region < 0 {
		return '.', tcell.StyleDefault
	}
	style := tcell.StyleDefault.Foreground(regionColors[tile.Region%len(regionColors)])
	if info, ok := v.nav.Region(tile.Region); ok && info.Indoor {
		return ':', style
	}
	return '.', style
}

func (v *viewer) draw() {
	v.screen.Clear()
	screenW, screenH := v.screen.Size()
	viewW := screenW
	viewH := screenH - statusRows
	if viewH < 1 {
		viewH = 1
	}
	originX := scrollOrigin(v.cursor.X, viewW, v.width)
	originY := scrollOrigin(v.cursor.Y, viewH, v.height)

	for y := 0; y < viewH && originY+y < v.height; y++ {
		for x := 0; x < viewW && originX+x < v.width; x++ {
			c := nav.Coord{X: originX + x, Y: originY + y}
			ch, style := v.cell(c)
			if c == v.cursor {
				style = style.Reverse(true)
			}
			v.screen.SetContent(x, y, ch, nil, style)
		}
	}

	cursorInfo := fmt.Sprintf("(%d,%d)", v.cursor.X, v.cursor.Y)
	if region, ok := v.nav.RegionAt(v.center(v.cursor)); ok {
		cursorInfo += fmt.Sprintf(" region %d", region)
	} else if id, ok := v.nav.PortalAt(v.cursor.X, v.cursor.Y); ok {
		cursorInfo += " portal " + id
	}
	v.drawText(0, screenH-2, cursorInfo)
	v.drawText(0, screenH-1, v.status)
	v.screen.Show()
}

func (v *viewer) drawText(x, y int, text string) {
	if y < 0 {
		return
	}
	for i, r := range text {
		v.screen.SetContent(x+i, y, r, nil, styleStatus)
	}
}

// scrollOrigin keeps the cursor inside a view of size view over a map of
// size total.
func scrollOrigin(cursor, view, total int) int {
	if total <= view {
		return 0
	}
	origin := cursor - view/2
	if origin < 0 {
		origin = 0
	}
	if origin > total-view {
		origin = total - view
	}
	return origin
}
