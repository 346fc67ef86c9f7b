package nav

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"roomnav/logging"
	lognav "roomnav/logging/navigation"
)

// DefaultIndoorDiscount scales portal legs between two indoor regions when a
// query prefers indoor routes.
const DefaultIndoorDiscount = 0.9

// State is the navigator's initialization stage.
type State int

const (
	StateUninitialized State = iota
	StateGridSet
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateGridSet:
		return "grid_set"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Config struct {
	Publisher      logging.Publisher
	MaxExpansions  int     // per query; zero means 4 x tile count
	IndoorDiscount float64 // zero means DefaultIndoorDiscount
	MapID          string
}

func DefaultConfig() Config {
	return Config{
		Publisher:      logging.NopPublisher(),
		IndoorDiscount: DefaultIndoorDiscount,
	}
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.Publisher == nil {
		normalized.Publisher = logging.NopPublisher()
	}
	if normalized.MaxExpansions < 0 {
		normalized.MaxExpansions = 0
	}
	if !(normalized.IndoorDiscount > 0) || normalized.IndoorDiscount > 1 {
		normalized.IndoorDiscount = DefaultIndoorDiscount
	}
	return normalized
}

// PathQuery asks for a route between two world points. CostBias overrides
// the multiplier of the named portals for this query only.
type PathQuery struct {
	Start        Point              `json:"start"`
	Goal         Point              `json:"goal"`
	CostBias     map[string]float64 `json:"costBias,omitempty"`
	PreferIndoor bool               `json:"preferIndoor,omitempty"`
}

// PathResponse is the outcome of a query: either OK with waypoints in world
// units, or a failure Reason. It shares no memory with the navigator.
type PathResponse struct {
	OK        bool     `json:"ok"`
	Reason    Reason   `json:"reason,omitempty"`
	Waypoints []Point  `json:"waypoints,omitempty"`
	TotalCost float64  `json:"totalCost"` // polyline length in tiles
	Portals   []string `json:"portals,omitempty"`
	Expanded  int      `json:"expanded"`
}

// Err returns the sentinel error matching Reason, or nil on success.
func (r PathResponse) Err() error {
	return r.Reason.Err()
}

func failure(reason Reason, expanded int) PathResponse {
	return PathResponse{Reason: reason, Expanded: expanded}
}

// Navigator owns the grid, regions and portals of one map. It is not safe
// for concurrent use; callers serialize access.
type Navigator struct {
	cfg   Config
	state State

	grid     *grid
	regions  []*Region
	portals  []*Portal
	byID     map[string]*Portal
	graph    *portalGraph
	searcher *searcher
}

func New(cfg Config) *Navigator {
	return &Navigator{cfg: cfg.normalized()}
}

func (n *Navigator) State() State {
	return n.state
}

func (n *Navigator) actor() logging.EntityRef {
	id := n.cfg.MapID
	if id == "" {
		id = "navigator"
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindNavigator}
}

// SetGrid classifies a new layout and discards any existing topology. On
// error the navigator keeps its previous grid and state.
func (n *Navigator) SetGrid(layout Layout) error {
	g, err := newGrid(layout)
	if err != nil {
		return err
	}
	n.grid = g
	n.regions = nil
	n.portals = nil
	n.byID = nil
	n.graph = nil
	n.searcher = newSearcher(g)
	n.state = StateGridSet
	return nil
}

// Build derives regions, portals and the portal graph from the current grid.
// Flags set on the previous topology are not carried over.
func (n *Navigator) Build() error {
	if n.state == StateUninitialized || n.grid == nil {
		return ErrNotInitialized
	}
	ctx := context.Background()
	g := n.grid
	g.clearTopology()

	regions := buildRegions(g)
	portals, diagnostics := buildPortals(g, regions)
	byID := make(map[string]*Portal, len(portals))
	for _, p := range portals {
		byID[p.ID] = p
	}

	n.regions = regions
	n.portals = portals
	n.byID = byID
	n.graph = newPortalGraph(regions, portals)
	n.state = StateReady

	discards := 0
	for _, diag := range diagnostics {
		payload := lognav.DoorRunPayload{Door: diag.source, Regions: diag.regions}
		for _, c := range diag.tiles {
			payload.Tiles = append(payload.Tiles, [2]int{c.X, c.Y})
		}
		if diag.kind == diagnosticDiscarded {
			discards++
			lognav.PortalDiscarded(ctx, n.cfg.Publisher, n.cfg.MapID, n.actor(), payload)
			continue
		}
		lognav.PortalAmbiguous(ctx, n.cfg.Publisher, n.cfg.MapID, n.actor(), payload)
	}
	lognav.TopologyBuilt(ctx, n.cfg.Publisher, n.cfg.MapID, n.actor(), lognav.TopologyBuiltPayload{
		Width:    g.cols,
		Height:   g.rows,
		Regions:  len(regions),
		Portals:  len(portals),
		Discards: discards,
	})
	return nil
}

// Load sets the grid and builds its topology in one step.
func (n *Navigator) Load(layout Layout) error {
	if err := n.SetGrid(layout); err != nil {
		return err
	}
	return n.Build()
}

func (n *Navigator) budget() int {
	if n.cfg.MaxExpansions > 0 {
		return n.cfg.MaxExpansions
	}
	return 4 * len(n.grid.kinds)
}

// FindPath plans a route. Failures are reported through the response's
// Reason rather than an error.
func (n *Navigator) FindPath(query PathQuery) PathResponse {
	if n.state != StateReady {
		return failure(ReasonNotInitialized, 0)
	}
	g := n.grid
	startTile, ok := g.locate(query.Start)
	if !ok || g.kinds[startTile] != TileWalkable {
		return failure(ReasonInvalidStart, 0)
	}
	goalTile, ok := g.locate(query.Goal)
	if !ok || g.kinds[goalTile] != TileWalkable {
		return failure(ReasonInvalidGoal, 0)
	}
	startRegion := int(g.regionOf[startTile])
	goalRegion := int(g.regionOf[goalTile])
	start := g.cellPoint(query.Start)
	goal := g.cellPoint(query.Goal)

	var route []crossing
	if startRegion != goalRegion {
		if !n.graph.connected(n.portals, startRegion, goalRegion) {
			return failure(ReasonNoPath, 0)
		}
		route, ok = n.graph.plan(n.regions, n.portals, planRequest{
			start:          start,
			goal:           goal,
			startRegion:    startRegion,
			goalRegion:     goalRegion,
			bias:           query.CostBias,
			preferIndoor:   query.PreferIndoor,
			indoorDiscount: n.cfg.IndoorDiscount,
		})
		if !ok {
			return failure(ReasonNoPath, 0)
		}
	}

	points := []routePoint{{Point: start, fixed: true}}
	budget := n.budget()
	expanded := 0
	from := startTile
	region := int32(startRegion)
	prevPortal := int32(-1)
	leg := func(to int, mask legMask) bool {
		tiles, used, found, exhausted := n.searcher.search(from, to, mask, budget-expanded)
		expanded += used
		if exhausted {
			lognav.SearchCeiling(context.Background(), n.cfg.Publisher, n.cfg.MapID, n.actor(), lognav.SearchCeilingPayload{
				Expanded: expanded,
				Budget:   budget,
			})
		}
		if !found {
			return false
		}
		for _, idx := range tiles {
			points = append(points, routePoint{Point: g.cellCenter(idx)})
		}
		return true
	}

	for _, step := range route {
		p := n.portals[step.portal]
		mask := legMask{g: g, region: region, portals: [2]int32{prevPortal, int32(p.index)}}
		if !leg(p.anchor, mask) {
			return failure(ReasonNoPath, expanded)
		}
		points = append(points, routePoint{Point: p.pin, fixed: true})
		from = p.anchor
		region = int32(step.into)
		prevPortal = int32(p.index)
	}
	if !leg(goalTile, legMask{g: g, region: region, portals: [2]int32{prevPortal, -1}}) {
		return failure(ReasonNoPath, expanded)
	}
	points = append(points, routePoint{Point: goal, fixed: true})

	onRoute := make(map[int32]struct{}, len(route))
	for _, step := range route {
		onRoute[int32(step.portal)] = struct{}{}
	}
	allowed := func(idx int) bool {
		if g.kinds[idx] == TileWalkable {
			return true
		}
		_, ok := onRoute[g.portalOf[idx]]
		return ok
	}
	smoothed := smoothPath(g, dedupe(points), allowed)

	resp := PathResponse{
		OK:        true,
		Waypoints: make([]Point, len(smoothed)),
		TotalCost: polylineLength(smoothed),
		Expanded:  expanded,
	}
	for i, pt := range smoothed {
		resp.Waypoints[i] = g.worldPoint(pt)
	}
	for _, step := range route {
		resp.Portals = append(resp.Portals, n.portals[step.portal].ID)
	}
	return resp
}

// dedupe merges consecutive identical points, keeping the fixed flag.
func dedupe(points []routePoint) []routePoint {
	out := points[:0:0]
	for _, pt := range points {
		if last := len(out) - 1; last >= 0 && out[last].Point == pt.Point {
			out[last].fixed = out[last].fixed || pt.fixed
			continue
		}
		out = append(out, pt)
	}
	return out
}

// SetPortalOpen toggles a portal in place. Topology is untouched.
func (n *Navigator) SetPortalOpen(id string, open bool) error {
	p, err := n.lookupPortal(id)
	if err != nil {
		return err
	}
	p.Open = open
	n.publishPortal(p)
	return nil
}

// SetPortalCost replaces a portal's cost multiplier.
func (n *Navigator) SetPortalCost(id string, multiplier float64) error {
	p, err := n.lookupPortal(id)
	if err != nil {
		return err
	}
	if !(multiplier > 0) || math.IsInf(multiplier, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCost, multiplier)
	}
	p.CostMultiplier = multiplier
	n.publishPortal(p)
	return nil
}

func (n *Navigator) SetRegionIndoor(id int, indoor bool) error {
	if n.state != StateReady {
		return ErrNotInitialized
	}
	if id < 0 || id >= len(n.regions) {
		return fmt.Errorf("%w: region %d", ErrNotFound, id)
	}
	region := n.regions[id]
	region.Indoor = indoor
	lognav.RegionState(context.Background(), n.cfg.Publisher, n.cfg.MapID, n.actor(),
		logging.EntityRef{ID: strconv.Itoa(id), Kind: logging.EntityKindRegion},
		lognav.RegionStatePayload{Indoor: indoor})
	return nil
}

func (n *Navigator) lookupPortal(id string) (*Portal, error) {
	if n.state != StateReady {
		return nil, ErrNotInitialized
	}
	p, ok := n.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: portal %q", ErrNotFound, id)
	}
	return p, nil
}

func (n *Navigator) publishPortal(p *Portal) {
	lognav.PortalState(context.Background(), n.cfg.Publisher, n.cfg.MapID, n.actor(),
		logging.EntityRef{ID: p.ID, Kind: logging.EntityKindPortal},
		lognav.PortalStatePayload{Open: p.Open, CostMultiplier: p.CostMultiplier})
}

// PortalState is one line of the per-portal dump in Stats.
type PortalState struct {
	ID             string  `json:"id"`
	Open           bool    `json:"open"`
	CostMultiplier float64 `json:"costMultiplier"`
}

// Stats is a diagnostic snapshot. It is not authoritative for planning.
type Stats struct {
	State        string        `json:"state"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	TileSize     float64       `json:"tileSize"`
	Regions      int           `json:"regions"`
	Portals      int           `json:"portals"`
	PortalStates []PortalState `json:"portalStates,omitempty"`
}

func (n *Navigator) Stats() Stats {
	stats := Stats{State: n.state.String(), Regions: len(n.regions), Portals: len(n.portals)}
	if n.grid != nil {
		stats.Width = n.grid.cols
		stats.Height = n.grid.rows
		stats.TileSize = n.grid.tileSize
	}
	for _, p := range n.portals {
		stats.PortalStates = append(stats.PortalStates, PortalState{ID: p.ID, Open: p.Open, CostMultiplier: p.CostMultiplier})
	}
	sort.Slice(stats.PortalStates, func(i, j int) bool {
		return stats.PortalStates[i].ID < stats.PortalStates[j].ID
	})
	return stats
}

func (n *Navigator) Region(id int) (RegionInfo, bool) {
	if id < 0 || id >= len(n.regions) {
		return RegionInfo{}, false
	}
	return n.regions[id].info(), true
}

func (n *Navigator) Regions() []RegionInfo {
	infos := make([]RegionInfo, len(n.regions))
	for i, r := range n.regions {
		infos[i] = r.info()
	}
	return infos
}

func (n *Navigator) Portal(id string) (PortalInfo, bool) {
	p, ok := n.byID[id]
	if !ok {
		return PortalInfo{}, false
	}
	return p.info(), true
}

// Portals lists portals in build order.
func (n *Navigator) Portals() []PortalInfo {
	infos := make([]PortalInfo, len(n.portals))
	for i, p := range n.portals {
		infos[i] = p.info()
	}
	return infos
}

// Follow returns a Follower for resp using the loaded grid's tile size and
// DefaultTolerance.
func (n *Navigator) Follow(resp PathResponse) *Follower {
	tileSize := DefaultTileSize
	if n.grid != nil {
		tileSize = n.grid.tileSize
	}
	return NewFollower(resp, tileSize, DefaultTolerance)
}

// RegionAt returns the region containing a world point, if any.
func (n *Navigator) RegionAt(p Point) (int, bool) {
	if n.state != StateReady {
		return NoRegion, false
	}
	idx, ok := n.grid.locate(p)
	if !ok || n.grid.regionOf[idx] < 0 {
		return NoRegion, false
	}
	return int(n.grid.regionOf[idx]), true
}

// Tile returns the tile at a column and row.
func (n *Navigator) Tile(col, row int) (Tile, bool) {
	if n.grid == nil || !n.grid.inBounds(col, row) {
		return Tile{}, false
	}
	return n.grid.tile(n.grid.index(col, row)), true
}

// PortalAt returns the id of the portal owning the door tile at col,row.
func (n *Navigator) PortalAt(col, row int) (string, bool) {
	if n.grid == nil || !n.grid.inBounds(col, row) {
		return "", false
	}
	pi := n.grid.portalOf[n.grid.index(col, row)]
	if pi < 0 || int(pi) >= len(n.portals) {
		return "", false
	}
	return n.portals[pi].ID, true
}
