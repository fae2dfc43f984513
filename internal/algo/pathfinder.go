// Package algo implements grid pathfinding for the fleet: a space-time
// search that respects the reservations of already planned units, and a
// resumable single-source search for ranking many targets.
package algo

import (
	"container/heap"
	"fmt"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
)

// stNode is a frontier entry of the space-time search.
type stNode struct {
	state  spaceTime
	g      float64 // cost so far
	energy int     // unit energy on arrival
	seq    int     // insertion order, breaks cost ties
	parent *stNode
	index  int // heap index
}

// stHeap implements heap.Interface.
type stHeap []*stNode

func (h stHeap) Len() int { return len(h) }
func (h stHeap) Less(i, j int) bool {
	if h[i].g != h[j].g {
		return h[i].g < h[j].g
	}
	return h[i].seq < h[j].seq
}
func (h stHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *stHeap) Push(x any) {
	n := x.(*stNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *stHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Pathfinder plans unit paths over a grid.
type Pathfinder struct {
	grid *core.Grid
	cfg  *config.Config
}

// NewPathfinder creates a pathfinder over g.
func NewPathfinder(g *core.Grid, cfg *config.Config) *Pathfinder {
	return &Pathfinder{grid: g, cfg: cfg}
}

// Grid returns the grid the pathfinder plans over.
func (pf *Pathfinder) Grid() *core.Grid { return pf.grid }

// TileEnergy returns the believed energy of p.
func (pf *Pathfinder) TileEnergy(p core.Pos) int {
	c := pf.grid.At(p)
	if !c.HasEnergy {
		return pf.cfg.Game.HiddenTileEnergy
	}
	return c.Energy
}

// StepCost is the cost of spending one step on p, either by moving onto it
// or by waiting there. It is never negative.
func (pf *Pathfinder) StepCost(p core.Pos, wait bool) float64 {
	plan := pf.cfg.Planning
	base := float64(pf.cfg.Game.UnitMoveCost)
	if wait {
		base = plan.WaitCost
	}
	cost := base + plan.EnergyWeight*float64(max(pf.cfg.Game.MaxTileEnergy-pf.TileEnergy(p), 0))
	if pf.grid.At(p).Type == core.Nebula {
		cost += plan.NebulaPenalty
	}
	return max(cost, 0)
}

// energyAfter returns the unit energy after spending a step on p.
func (pf *Pathfinder) energyAfter(energy int, p core.Pos, moved bool) int {
	game := pf.cfg.Game
	if moved {
		energy -= game.UnitMoveCost
	}
	energy += pf.TileEnergy(p)
	if pf.grid.At(p).Type == core.Nebula {
		energy -= game.NebulaEnergyReduction
	}
	return min(energy, game.MaxUnitEnergy)
}

// FindPath returns the cheapest path from start to goal for a unit holding
// energy, avoiding every claim in table (which may be nil). The path ends
// on a cell that stays free for the rest of the horizon. ok is false when no
// such path exists; the error is reserved for off-grid input.
func (pf *Pathfinder) FindPath(start, goal core.Pos, energy int, table *Reservations) (core.Path, bool, error) {
	g := pf.grid
	if !g.InBounds(start) {
		return nil, false, fmt.Errorf("path start %v: %w", start, core.ErrOutOfBounds)
	}
	if !g.InBounds(goal) {
		return nil, false, fmt.Errorf("path goal %v: %w", goal, core.ErrOutOfBounds)
	}
	if !g.Walkable(goal) || energy < 0 {
		return nil, false, nil
	}
	if table == nil {
		table = NewReservations()
	}
	horizon := pf.cfg.Planning.Horizon
	moveCost := pf.cfg.Game.UnitMoveCost

	open := &stHeap{}
	heap.Init(open)
	seq := 0
	push := func(n *stNode) {
		n.seq = seq
		seq++
		heap.Push(open, n)
	}
	push(&stNode{state: spaceTime{start, 0}, energy: energy})

	closed := make(map[spaceTime]bool)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*stNode)
		if closed[cur.state] {
			continue
		}
		closed[cur.state] = true

		p, t := cur.state.P, cur.state.T
		if p == goal && table.FreeFrom(goal, t) {
			return reconstructPath(cur), true, nil
		}
		if t >= horizon {
			continue
		}

		// wait
		next := spaceTime{p, t + 1}
		if _, taken := table.Occupied(p, t+1); !taken && !closed[next] {
			if e := pf.energyAfter(cur.energy, p, false); e >= 0 {
				push(&stNode{state: next, g: cur.g + pf.StepCost(p, true), energy: e, parent: cur})
			}
		}

		if cur.energy < moveCost {
			continue
		}
		for _, d := range core.Directions {
			q := p.Add(d.X, d.Y)
			if !g.Walkable(q) {
				continue
			}
			next := spaceTime{q, t + 1}
			if closed[next] {
				continue
			}
			if _, taken := table.Occupied(q, t+1); taken || table.Swapped(p, q, t+1) {
				continue
			}
			e := pf.energyAfter(cur.energy, q, true)
			if e < 0 {
				continue
			}
			push(&stNode{state: next, g: cur.g + pf.StepCost(q, false), energy: e, parent: cur})
		}
	}

	return nil, false, nil
}

func reconstructPath(node *stNode) core.Path {
	path := make(core.Path, node.state.T+1)
	for n := node; n != nil; n = n.parent {
		path[n.state.T] = n.state.P
	}
	return path
}

// PathToActions converts consecutive path positions into move actions.
func PathToActions(path core.Path) ([]core.Action, error) {
	if len(path) < 2 {
		return nil, nil
	}
	actions := make([]core.Action, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		a, ok := core.MoveTowards(path[i-1], path[i])
		if !ok {
			return nil, fmt.Errorf("path step %d: %v to %v is not a single move", i, path[i-1], path[i])
		}
		actions = append(actions, a)
	}
	return actions, nil
}
