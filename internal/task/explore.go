package task

import (
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
)

// Explore sends a unit to a cell whose relic or reward status is still
// unknown.
type Explore struct {
	unit   *fleet.Unit
	target core.Pos
	dist   float64
}

func (e *Explore) Kind() string             { return KindExplore }
func (e *Explore) Target() (core.Pos, bool) { return e.target, true }
func (e *Explore) String() string           { return KindExplore + e.target.String() }

func (e *Explore) Evaluate(t *Turn) float64 {
	s := t.Cfg.Scoring
	return s.ExploreBase - s.ExploreDistance*e.dist
}

func (e *Explore) Apply(t *Turn) bool {
	return t.planTo(e.unit, e.target)
}

// Completed reports whether the unit stands on the target or the target no
// longer hides anything.
func (e *Explore) Completed(t *Turn) bool {
	return e.unit.Pos == e.target || !unexplored(t, t.Grid.At(e.target))
}

func (e *Explore) Valid(t *Turn) bool {
	return t.Grid.Walkable(e.target)
}

func unexplored(t *Turn, c core.Cell) bool {
	return (!t.RelicsFound && !c.Relic.Known()) || (!t.RewardsFound && !c.Reward.Known())
}

// ExploreGenerator proposes the nearest free unexplored cell other than the
// one the unit stands on.
type ExploreGenerator struct{}

func (ExploreGenerator) Kind() string { return KindExplore }

func (ExploreGenerator) Generate(t *Turn, u *fleet.Unit) Task {
	if t.RelicsFound && t.RewardsFound {
		return nil
	}
	var cells []core.Pos
	for c := range t.Grid.All() {
		if c.Pos != u.Pos && c.Walkable() && unexplored(t, c) {
			cells = append(cells, c.Pos)
		}
	}
	target, dist, ok := t.nearestUnclaimed(u, cells)
	if !ok {
		return nil
	}
	return &Explore{unit: u, target: target, dist: dist}
}
