package core

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Cell is one tile of the grid together with everything believed about it.
type Cell struct {
	Pos       Pos
	Type      TileType
	Energy    int
	HasEnergy bool // false while the tile energy is unknown
	Visible   bool // inside the sensor mask this turn
	Relic     TriState
	Reward    TriState
}

// Walkable reports whether a unit may stand on the cell.
func (c Cell) Walkable() bool { return c.Type.Walkable() }

// RewardObservation records which cells the fleet occupied on a turn and
// how many points that turn produced.
type RewardObservation struct {
	Cells  []Pos
	Reward int
}

// Grid is the fixed-size square map. It is point-symmetric: every write of
// type, relic or reward status is mirrored to the opposite cell.
type Grid struct {
	Size int

	cells   []Cell // row-major: cells[y*Size + x]
	relics  map[Pos]struct{}
	rewards map[Pos]struct{}

	observations    []RewardObservation
	maxObservations int
	shiftHistory    []bool
}

// NewGrid creates a size x size grid with every attribute unknown.
// maxObservations caps the reward observation log (0 means unbounded).
func NewGrid(size, maxObservations int) *Grid {
	g := &Grid{
		Size:            size,
		cells:           make([]Cell, size*size),
		relics:          make(map[Pos]struct{}),
		rewards:         make(map[Pos]struct{}),
		maxObservations: maxObservations,
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.cells[y*size+x] = Cell{Pos: Pos{x, y}, Type: Unknown}
		}
	}
	return g
}

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.Size && p.Y >= 0 && p.Y < g.Size
}

// Index returns the row-major index of an in-bounds position.
func (g *Grid) Index(p Pos) int { return p.Y*g.Size + p.X }

// PosAt is the inverse of Index.
func (g *Grid) PosAt(i int) Pos { return Pos{X: i % g.Size, Y: i / g.Size} }

// At returns the cell at p. Out-of-bounds reads return an unknown cell.
func (g *Grid) At(p Pos) Cell {
	if !g.InBounds(p) {
		return Cell{Pos: p, Type: Unknown}
	}
	return g.cells[g.Index(p)]
}

// Walkable reports whether p is on the grid and not an obstacle.
func (g *Grid) Walkable(p Pos) bool {
	return g.InBounds(p) && g.cells[g.Index(p)].Walkable()
}

// All iterates over every cell in row-major order.
func (g *Grid) All() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for _, c := range g.cells {
			if !yield(c) {
				return
			}
		}
	}
}

// Opposite returns the mirror image of p under the map symmetry.
func (g *Grid) Opposite(p Pos) Pos {
	return Pos{X: g.Size - 1 - p.Y, Y: g.Size - 1 - p.X}
}

// Wrap maps p back onto the torus.
func (g *Grid) Wrap(p Pos) Pos {
	return Pos{X: wrap(p.X, g.Size), Y: wrap(p.Y, g.Size)}
}

func (g *Grid) checkBounds(p Pos) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%v on %dx%d grid: %w", p, g.Size, g.Size, ErrOutOfBounds)
	}
	return nil
}

// SetType sets the tile type of p and of its mirror.
func (g *Grid) SetType(p Pos, t TileType) error {
	if err := g.checkBounds(p); err != nil {
		return err
	}
	g.cells[g.Index(p)].Type = t
	g.cells[g.Index(g.Opposite(p))].Type = t
	return nil
}

// SetEnergy records the observed energy of p. Energy is not mirrored.
func (g *Grid) SetEnergy(p Pos, e int) {
	if g.InBounds(p) {
		c := &g.cells[g.Index(p)]
		c.Energy, c.HasEnergy = e, true
	}
}

// ClearEnergy forgets the energy of p.
func (g *Grid) ClearEnergy(p Pos) {
	if g.InBounds(p) {
		c := &g.cells[g.Index(p)]
		c.Energy, c.HasEnergy = 0, false
	}
}

// SetVisible marks whether p is inside this turn's sensor mask.
func (g *Grid) SetVisible(p Pos, v bool) {
	if g.InBounds(p) {
		g.cells[g.Index(p)].Visible = v
	}
}

// ClearVisibility marks every cell as not visible.
func (g *Grid) ClearVisibility() {
	for i := range g.cells {
		g.cells[i].Visible = false
	}
}

// SetRelic records the relic status of p and its mirror. Both transitions
// are validated before either is written.
func (g *Grid) SetRelic(p Pos, status bool) error {
	if err := g.checkBounds(p); err != nil {
		return err
	}
	a, b := &g.cells[g.Index(p)], &g.cells[g.Index(g.Opposite(p))]
	na, err := Observe(a.Relic, status)
	if err != nil {
		return &ConflictError{Pos: a.Pos, Attribute: "relic", Held: a.Relic, Observed: status}
	}
	nb, err := Observe(b.Relic, status)
	if err != nil {
		return &ConflictError{Pos: b.Pos, Attribute: "relic", Held: b.Relic, Observed: status}
	}
	a.Relic, b.Relic = na, nb
	if status {
		g.relics[a.Pos] = struct{}{}
		g.relics[b.Pos] = struct{}{}
	}
	return nil
}

// SetReward records the reward status of p and its mirror.
func (g *Grid) SetReward(p Pos, status bool) error {
	if err := g.checkBounds(p); err != nil {
		return err
	}
	a, b := &g.cells[g.Index(p)], &g.cells[g.Index(g.Opposite(p))]
	na, err := Observe(a.Reward, status)
	if err != nil {
		return &ConflictError{Pos: a.Pos, Attribute: "reward", Held: a.Reward, Observed: status}
	}
	nb, err := Observe(b.Reward, status)
	if err != nil {
		return &ConflictError{Pos: b.Pos, Attribute: "reward", Held: b.Reward, Observed: status}
	}
	a.Reward, b.Reward = na, nb
	if status {
		g.rewards[a.Pos] = struct{}{}
		g.rewards[b.Pos] = struct{}{}
	}
	return nil
}

// RelicCells returns the known relic cells in row-major order.
func (g *Grid) RelicCells() []Pos { return sortedPositions(g.relics) }

// RewardCells returns the known reward cells in row-major order.
func (g *Grid) RewardCells() []Pos { return sortedPositions(g.rewards) }

// RelicCount is the number of known relic cells, mirrors included.
func (g *Grid) RelicCount() int { return len(g.relics) }

func sortedPositions(set map[Pos]struct{}) []Pos {
	return slices.SortedFunc(maps.Keys(set), func(a, b Pos) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
}

// AllRelicsExplored reports whether every cell has a known relic status.
func (g *Grid) AllRelicsExplored() bool {
	for _, c := range g.cells {
		if !c.Relic.Known() {
			return false
		}
	}
	return true
}

// AllRewardsExplored reports whether every cell has a known reward status.
func (g *Grid) AllRewardsExplored() bool {
	for _, c := range g.cells {
		if !c.Reward.Known() {
			return false
		}
	}
	return true
}

// InvalidateTypes forgets every tile type.
func (g *Grid) InvalidateTypes() {
	for i := range g.cells {
		g.cells[i].Type = Unknown
	}
}

// Shift returns a copy of g whose tile types are translated by (dx, dy)
// with wraparound. Nothing else moves.
func (g *Grid) Shift(dx, dy int) *Grid {
	out := g.Clone()
	out.ShiftInPlace(dx, dy)
	return out
}

// ShiftInPlace translates the tile types of g by (dx, dy).
func (g *Grid) ShiftInPlace(dx, dy int) {
	types := make([]TileType, len(g.cells))
	for _, c := range g.cells {
		types[g.Index(g.Wrap(c.Pos.Add(dx, dy)))] = c.Type
	}
	for i := range g.cells {
		g.cells[i].Type = types[i]
	}
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Size:            g.Size,
		cells:           slices.Clone(g.cells),
		relics:          maps.Clone(g.relics),
		rewards:         maps.Clone(g.rewards),
		maxObservations: g.maxObservations,
		shiftHistory:    slices.Clone(g.shiftHistory),
	}
	out.observations = make([]RewardObservation, len(g.observations))
	for i, o := range g.observations {
		out.observations[i] = RewardObservation{Cells: slices.Clone(o.Cells), Reward: o.Reward}
	}
	return out
}

// AppendObservation adds a reward observation, dropping the oldest entry
// once the log is full.
func (g *Grid) AppendObservation(o RewardObservation) {
	g.observations = append(g.observations, o)
	if g.maxObservations > 0 && len(g.observations) > g.maxObservations {
		g.observations = slices.Delete(g.observations, 0, len(g.observations)-g.maxObservations)
	}
}

// Observations returns the pending reward observations.
func (g *Grid) Observations() []RewardObservation { return g.observations }

// SetObservations replaces the pending reward observations.
func (g *Grid) SetObservations(obs []RewardObservation) { g.observations = obs }

// AppendShift records whether the obstacle layout changed this turn.
func (g *Grid) AppendShift(shifted bool) { g.shiftHistory = append(g.shiftHistory, shifted) }

// ShiftHistory returns the per-turn obstacle shift flags.
func (g *Grid) ShiftHistory() []bool { return g.shiftHistory }
