package task

import (
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
)

// Harvest sends a unit to a known reward cell and keeps it there.
type Harvest struct {
	unit   *fleet.Unit
	target core.Pos
	dist   float64
}

func (h *Harvest) Kind() string             { return KindHarvest }
func (h *Harvest) Target() (core.Pos, bool) { return h.target, true }
func (h *Harvest) Completed(*Turn) bool     { return false }
func (h *Harvest) String() string           { return KindHarvest + h.target.String() }

func (h *Harvest) Evaluate(t *Turn) float64 {
	s := t.Cfg.Scoring
	return s.HarvestBase - s.HarvestDistance*h.dist
}

func (h *Harvest) Valid(t *Turn) bool {
	return t.Grid.At(h.target).Reward.IsTrue() && t.Grid.Walkable(h.target)
}

func (h *Harvest) Apply(t *Turn) bool {
	return t.planTo(h.unit, h.target)
}

// HarvestGenerator proposes the nearest free reward cell.
type HarvestGenerator struct{}

func (HarvestGenerator) Kind() string { return KindHarvest }

func (HarvestGenerator) Generate(t *Turn, u *fleet.Unit) Task {
	var cells []core.Pos
	for _, p := range t.Grid.RewardCells() {
		if t.Grid.Walkable(p) {
			cells = append(cells, p)
		}
	}
	target, dist, ok := t.nearestUnclaimed(u, cells)
	if !ok {
		return nil
	}
	return &Harvest{unit: u, target: target, dist: dist}
}
