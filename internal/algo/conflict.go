package algo

import (
	"slices"

	"github.com/elektrokombinacija/relic-fleet/internal/core"
)

// Conflict is a collision between two committed plans.
type Conflict struct {
	Unit1, Unit2 core.UnitID
	Pos          core.Pos
	Time         int  // step at which the units collide
	IsEdge       bool // swap along an edge instead of sharing a cell
	// For edge conflicts: the move of Unit1
	EdgeFrom, EdgeTo core.Pos
}

func sortedUnitIDs(plans core.Plans) []core.UnitID {
	ids := make([]core.UnitID, 0, len(plans))
	for id, path := range plans {
		if len(path) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func horizonOf(plans core.Plans) int {
	h := 0
	for _, path := range plans {
		h = max(h, len(path))
	}
	return h
}

// FindFirstConflict returns the earliest conflict among plans, or nil.
// Units stay on their last cell once their path runs out. Step 0 is the
// present and never conflicts. Vertex conflicts win ties.
func FindFirstConflict(plans core.Plans) *Conflict {
	all := FindAllConflicts(plans)
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	for _, c := range all[1:] {
		if c.Time < best.Time || (c.Time == best.Time && best.IsEdge && !c.IsEdge) {
			best = c
		}
	}
	return best
}

// FindAllConflicts lists every vertex and edge conflict among plans.
func FindAllConflicts(plans core.Plans) []*Conflict {
	var conflicts []*Conflict
	units := sortedUnitIDs(plans)
	horizon := max(horizonOf(plans), 2)

	for t := 1; t < horizon; t++ {
		for i := 0; i < len(units); i++ {
			for j := i + 1; j < len(units); j++ {
				p1, p2 := plans[units[i]], plans[units[j]]

				if p1.At(t) == p2.At(t) {
					conflicts = append(conflicts, &Conflict{
						Unit1: units[i],
						Unit2: units[j],
						Pos:   p1.At(t),
						Time:  t,
					})
					continue
				}

				from1, to1 := p1.At(t-1), p1.At(t)
				from2, to2 := p2.At(t-1), p2.At(t)
				if from1 != to1 && from1 == to2 && to1 == from2 {
					conflicts = append(conflicts, &Conflict{
						Unit1:    units[i],
						Unit2:    units[j],
						Pos:      from1,
						Time:     t,
						IsEdge:   true,
						EdgeFrom: from1,
						EdgeTo:   to1,
					})
				}
			}
		}
	}

	return conflicts
}
