package nav

import (
	"container/heap"
	"math"
)

// portalGraph is the region-level abstraction: regions are nodes and
// portals are edges.
type portalGraph struct {
	adjacency [][]int // region id -> portal indices, ascending
}

func newPortalGraph(regions []*Region, portals []*Portal) *portalGraph {
	pg := &portalGraph{adjacency: make([][]int, len(regions))}
	for _, p := range portals {
		pg.adjacency[p.Regions[0]] = append(pg.adjacency[p.Regions[0]], p.index)
		pg.adjacency[p.Regions[1]] = append(pg.adjacency[p.Regions[1]], p.index)
	}
	return pg
}

// connected reports whether to is reachable from from through open portals.
func (pg *portalGraph) connected(portals []*Portal, from, to int) bool {
	if from == to {
		return true
	}
	visited := make([]bool, len(pg.adjacency))
	visited[from] = true
	queue := []int{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, pi := range pg.adjacency[current] {
			p := portals[pi]
			if !p.Open {
				continue
			}
			next := p.other(current)
			if visited[next] {
				continue
			}
			if next == to {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// planRequest carries what the portal sequence search needs from a query.
// Points are in cell space.
type planRequest struct {
	start, goal             Point
	startRegion, goalRegion int
	bias                    map[string]float64
	preferIndoor            bool
	indoorDiscount          float64
}

// crossing is one step of a portal sequence: the portal and the region the
// route continues into.
type crossing struct {
	portal int
	into   int
}

// plan runs Dijkstra over (portal, side) states. The leg ending at a portal
// costs the octile distance from the previous point to the portal center,
// scaled by the portal's multiplier (or the query's override) and, for
// indoor-preferring queries, by the indoor discount when both regions the
// portal joins are indoor. The final leg to the goal is unscaled.
func (pg *portalGraph) plan(regions []*Region, portals []*Portal, req planRequest) ([]crossing, bool) {
	const (
		startState = 0
		goalState  = 1
	)
	states := 2 + 2*len(portals)
	dist := make([]float64, states)
	prev := make([]int, states)
	done := make([]bool, states)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}

	// state 2+2k+s sits on portal k's center, about to enter Regions[s].
	stateRegion := func(state int) int {
		if state == startState {
			return req.startRegion
		}
		k, s := (state-2)/2, (state-2)%2
		return portals[k].Regions[s]
	}
	statePoint := func(state int) Point {
		if state == startState {
			return req.start
		}
		return portals[(state-2)/2].center
	}

	var open pathQueue
	var seq uint64
	dist[startState] = 0
	heap.Push(&open, pathNode{idx: startState, f: 0, seq: seq})
	seq++
	relax := func(from, to int, weight float64) {
		if done[to] {
			return
		}
		if d := dist[from] + weight; d < dist[to] {
			dist[to] = d
			prev[to] = from
			heap.Push(&open, pathNode{idx: to, f: d, seq: seq})
			seq++
		}
	}

	for open.Len() > 0 {
		current := heap.Pop(&open).(pathNode)
		if done[current.idx] || current.f > dist[current.idx] {
			continue
		}
		done[current.idx] = true
		if current.idx == goalState {
			break
		}
		region := stateRegion(current.idx)
		q := statePoint(current.idx)
		if region == req.goalRegion {
			relax(current.idx, goalState, octile(q.X, q.Y, req.goal.X, req.goal.Y))
		}
		for _, pi := range pg.adjacency[region] {
			p := portals[pi]
			if !p.Open {
				continue
			}
			into := p.other(region)
			multiplier := p.CostMultiplier
			if override, ok := req.bias[p.ID]; ok && override > 0 {
				multiplier = override
			}
			weight := octile(q.X, q.Y, p.center.X, p.center.Y) * multiplier
			if req.preferIndoor && regions[region].Indoor && regions[into].Indoor {
				weight *= req.indoorDiscount
			}
			side := 0
			if p.Regions[1] == into {
				side = 1
			}
			relax(current.idx, 2+2*pi+side, weight)
		}
	}

	if !done[goalState] {
		return nil, false
	}
	var route []crossing
	for state := prev[goalState]; state != startState; state = prev[state] {
		k, s := (state-2)/2, (state-2)%2
		route = append(route, crossing{portal: k, into: portals[k].Regions[s]})
	}
	for i := 0; i < len(route)/2; i++ {
		j := len(route) - 1 - i
		route[i], route[j] = route[j], route[i]
	}
	return route, true
}
