package infer

import (
	"slices"

	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

// eliminateByDistance marks as reward-free every cell with no relic, known
// or possible, within the relic reward range.
func (e *Engine) eliminateByDistance() error {
	g := e.Grid
	indicator := make([]int, g.Size*g.Size)
	for c := range g.All() {
		if c.Relic != core.StateFalse {
			indicator[g.Index(c.Pos)] = 1
		}
	}
	counts := core.WindowSum(indicator, g.Size, e.cfg.Game.RelicRewardRange)
	for i, n := range counts {
		if n != 0 {
			continue
		}
		if err := g.SetReward(g.PosAt(i), false); err != nil {
			return err
		}
	}
	return nil
}

// OccupiedCells returns the distinct in-bounds cells held by live units of
// team, in row-major order.
func OccupiedCells(g *core.Grid, obs *protocol.Observation, team int) []core.Pos {
	var cells []core.Pos
	for _, u := range obs.TeamUnits(team) {
		if g.InBounds(u.Pos) && !slices.Contains(cells, u.Pos) {
			cells = append(cells, u.Pos)
		}
	}
	slices.SortFunc(cells, comparePos)
	return cells
}

func comparePos(a, b core.Pos) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

func (e *Engine) recordReward(obs *protocol.Observation, reward int) {
	cells := OccupiedCells(e.Grid, obs, e.team)
	if len(cells) == 0 {
		return
	}
	e.Grid.AppendObservation(core.RewardObservation{Cells: cells, Reward: reward})
}

// resolveObservations runs one simplification pass over the reward log:
// known cells are removed from each entry and entries that pin down all of
// their remaining cells are resolved.
func (e *Engine) resolveObservations() error {
	g := e.Grid
	var pending []core.RewardObservation
	for _, o := range g.Observations() {
		unknown := make([]core.Pos, 0, len(o.Cells))
		need := o.Reward
		for _, p := range o.Cells {
			switch g.At(p).Reward {
			case core.StateTrue:
				need--
			case core.StateUnknown:
				unknown = append(unknown, p)
			}
		}

		if need < 0 || need > len(unknown) {
			e.log.Warn("inconsistent reward observation dropped",
				"cells", o.Cells, "reward", o.Reward, "unresolved", len(unknown), "needed", need)
			e.metrics.ObservationDropped()
			continue
		}
		if need == 0 || need == len(unknown) {
			status := need > 0
			for _, p := range unknown {
				if err := g.SetReward(p, status); err != nil {
					return err
				}
			}
			continue
		}
		pending = append(pending, core.RewardObservation{Cells: unknown, Reward: need})
	}
	g.SetObservations(pending)
	return nil
}
