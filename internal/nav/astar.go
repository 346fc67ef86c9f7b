package nav

import "container/heap"

type pathNode struct {
	idx int
	g   float64
	f   float64
	seq uint64
}

// pathQueue orders by f, then by push order so equal-cost frontiers expand
// in the order they were discovered.
type pathQueue []pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *pathQueue) Push(x any) { *pq = append(*pq, x.(pathNode)) }

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// legMask limits a search to one region plus the door tiles of the portals
// the leg leaves from and arrives at.
type legMask struct {
	g       *grid
	region  int32
	portals [2]int32 // -1 when unused
}

func (m legMask) allows(idx int) bool {
	g := m.g
	if g.kinds[idx] == TileWalkable {
		return g.regionOf[idx] == m.region
	}
	p := g.portalOf[idx]
	return p >= 0 && (p == m.portals[0] || p == m.portals[1])
}

// searcher owns the A* scratch buffers. Buffers are stamped with a
// generation counter so consecutive searches skip clearing them.
type searcher struct {
	g      *grid
	gScore []float64
	parent []int32
	seen   []uint32
	closed []uint32
	gen    uint32
	open   pathQueue
	seq    uint64
}

func newSearcher(g *grid) *searcher {
	size := len(g.kinds)
	return &searcher{
		g:      g,
		gScore: make([]float64, size),
		parent: make([]int32, size),
		seen:   make([]uint32, size),
		closed: make([]uint32, size),
	}
}

func (s *searcher) nextGeneration() {
	s.gen++
	if s.gen == 0 {
		for i := range s.seen {
			s.seen[i] = 0
			s.closed[i] = 0
		}
		s.gen = 1
	}
	s.open = s.open[:0]
	s.seq = 0
}

func (s *searcher) heuristic(idx, goal int) float64 {
	cols := s.g.cols
	return octile(float64(idx%cols), float64(idx/cols), float64(goal%cols), float64(goal/cols))
}

// search runs A* from start to goal inside mask, expanding at most budget
// nodes. It returns the tile path (start and goal inclusive), the number of
// expansions and whether the goal was reached. exhausted reports that the
// budget ran out before the frontier did.
func (s *searcher) search(start, goal int, mask legMask, budget int) (path []int, expanded int, ok, exhausted bool) {
	g := s.g
	s.nextGeneration()
	s.gScore[start] = 0
	s.parent[start] = -1
	s.seen[start] = s.gen
	heap.Push(&s.open, pathNode{idx: start, g: 0, f: s.heuristic(start, goal), seq: s.seq})
	s.seq++

	for s.open.Len() > 0 {
		current := heap.Pop(&s.open).(pathNode)
		if s.closed[current.idx] == s.gen {
			continue
		}
		if current.g > s.gScore[current.idx] {
			continue
		}
		if expanded >= budget {
			return nil, expanded, false, true
		}
		s.closed[current.idx] = s.gen
		expanded++
		if current.idx == goal {
			return s.reconstruct(goal), expanded, true, false
		}

		col, row := current.idx%g.cols, current.idx/g.cols
		for _, delta := range navNeighborOffsets {
			nc, nr := col+delta.col, row+delta.row
			if !g.inBounds(nc, nr) {
				continue
			}
			idx := g.index(nc, nr)
			if !mask.allows(idx) || s.closed[idx] == s.gen {
				continue
			}
			if !g.canStepDiagonal(col, row, delta, mask.allows) {
				continue
			}
			tentative := current.g + delta.cost
			if s.seen[idx] == s.gen && tentative >= s.gScore[idx] {
				continue
			}
			s.seen[idx] = s.gen
			s.gScore[idx] = tentative
			s.parent[idx] = int32(current.idx)
			heap.Push(&s.open, pathNode{idx: idx, g: tentative, f: tentative + s.heuristic(idx, goal), seq: s.seq})
			s.seq++
		}
	}
	return nil, expanded, false, false
}

func (s *searcher) reconstruct(goal int) []int {
	var path []int
	for idx := int32(goal); idx != -1; idx = s.parent[idx] {
		path = append(path, int(idx))
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
