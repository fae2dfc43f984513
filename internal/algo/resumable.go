package algo

import (
	"container/heap"
	"math"
	"slices"

	"github.com/elektrokombinacija/relic-fleet/internal/core"
)

type distNode struct {
	p     core.Pos
	d     float64
	seq   int
	index int
}

type distHeap []*distNode

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].d != h[j].d {
		return h[i].d < h[j].d
	}
	return h[i].seq < h[j].seq
}
func (h distHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *distHeap) Push(x any) {
	n := x.(*distNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// ResumableSearch is a lazily expanded single-source Dijkstra. Each query
// grows the settled region only as far as it needs, so ranking many targets
// from one origin costs at most one full search.
//
// It uses the move costs of the pathfinder but ignores time, reservations
// and unit energy.
type ResumableSearch struct {
	pf      *Pathfinder
	start   core.Pos
	open    distHeap
	best    map[core.Pos]float64
	settled map[core.Pos]float64
	seq     int
}

// NewResumableSearch starts a search from start.
func (pf *Pathfinder) NewResumableSearch(start core.Pos) *ResumableSearch {
	rs := &ResumableSearch{
		pf:      pf,
		start:   start,
		best:    make(map[core.Pos]float64),
		settled: make(map[core.Pos]float64),
	}
	if pf.grid.InBounds(start) {
		rs.push(start, 0)
	}
	return rs
}

// Start returns the origin of the search.
func (rs *ResumableSearch) Start() core.Pos { return rs.start }

func (rs *ResumableSearch) push(p core.Pos, d float64) {
	rs.best[p] = d
	heap.Push(&rs.open, &distNode{p: p, d: d, seq: rs.seq})
	rs.seq++
}

// step settles one more cell. It returns false once the frontier is empty.
func (rs *ResumableSearch) step() bool {
	for rs.open.Len() > 0 {
		cur := heap.Pop(&rs.open).(*distNode)
		if _, done := rs.settled[cur.p]; done {
			continue
		}
		rs.settled[cur.p] = cur.d
		for _, dir := range core.Directions {
			q := cur.p.Add(dir.X, dir.Y)
			if !rs.pf.grid.Walkable(q) {
				continue
			}
			if _, done := rs.settled[q]; done {
				continue
			}
			nd := cur.d + rs.pf.StepCost(q, false)
			if old, seen := rs.best[q]; seen && old <= nd {
				continue
			}
			rs.push(q, nd)
		}
		return true
	}
	return false
}

// Distance returns the path cost from the origin to target. ok is false
// when target cannot be reached.
func (rs *ResumableSearch) Distance(target core.Pos) (float64, bool) {
	for {
		if d, ok := rs.settled[target]; ok {
			return d, true
		}
		if !rs.step() {
			return math.Inf(1), false
		}
	}
}

// Reachable exhausts the search and returns every reachable cell in
// row-major order, the origin included.
func (rs *ResumableSearch) Reachable() []core.Pos {
	for rs.step() {
	}
	out := make([]core.Pos, 0, len(rs.settled))
	for p := range rs.settled {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b core.Pos) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return out
}

// Nearest returns the candidate with the smallest distance; earlier
// candidates win ties. ok is false when none is reachable.
func (rs *ResumableSearch) Nearest(candidates []core.Pos) (best core.Pos, dist float64, ok bool) {
	dist = math.Inf(1)
	for _, c := range candidates {
		d, reachable := rs.Distance(c)
		if reachable && d < dist {
			best, dist, ok = c, d, true
		}
	}
	return best, dist, ok
}
