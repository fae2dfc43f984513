// Package fleet tracks the live units of one team across turns.
package fleet

import (
	"iter"
	"slices"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

// Task is the part of a scheduled task the fleet needs to know about.
type Task interface {
	Kind() string
	Target() (core.Pos, bool)
}

// Unit is one live unit with its current commitment.
type Unit struct {
	ID      core.UnitID
	Pos     core.Pos
	Energy  int
	Task    Task
	Actions []core.Action

	expected    core.Pos // where the queue said the unit would be this turn
	hasExpected bool
	onPlan      bool // arrived where it was planned to
}

// NextPosition is where the unit ends up if the head of its queue runs.
func (u *Unit) NextPosition() core.Pos {
	if len(u.Actions) == 0 {
		return u.Pos
	}
	d := u.Actions[0].Delta()
	return u.Pos.Add(d.X, d.Y)
}

// CanMove reports whether the unit holds enough energy for one move.
func (u *Unit) CanMove(cfg *config.Config) bool {
	return u.Energy >= cfg.Game.UnitMoveCost
}

// OnPlan reports whether the unit reached the cell its plan predicted.
func (u *Unit) OnPlan() bool { return u.onPlan }

func (u *Unit) clone() *Unit {
	c := *u
	c.Actions = slices.Clone(u.Actions)
	return &c
}

// Fleet is the set of live units of one team, ordered by ID.
type Fleet struct {
	Team   int
	Points int

	cfg   *config.Config
	units []*Unit
}

// New creates an empty fleet.
func New(team int, cfg *config.Config) *Fleet {
	return &Fleet{Team: team, cfg: cfg}
}

// Update applies an observation: units are created, moved or dropped to
// match it. It returns the points the team gained since the last update.
func (f *Fleet) Update(obs *protocol.Observation) int {
	points := obs.Points(f.Team)
	reward := max(0, points-f.Points)
	f.Points = points

	live := obs.TeamUnits(f.Team)
	next := make([]*Unit, 0, len(live))
	for _, slot := range live {
		u := f.Get(slot.ID)
		if u == nil {
			u = &Unit{ID: slot.ID}
		}
		u.Pos, u.Energy = slot.Pos, slot.Energy

		u.onPlan = u.hasExpected && u.Pos == u.expected
		switch {
		case u.onPlan && len(u.Actions) > 0:
			u.Actions = u.Actions[1:]
		case !u.onPlan:
			u.Actions = nil
		}
		u.hasExpected = false
		next = append(next, u)
	}
	slices.SortFunc(next, func(a, b *Unit) int { return int(a.ID) - int(b.ID) })
	f.units = next
	return reward
}

// Clear forgets every unit and the score, as at the start of a match.
func (f *Fleet) Clear() {
	f.units = nil
	f.Points = 0
}

// Len returns the number of live units.
func (f *Fleet) Len() int { return len(f.units) }

// Units returns the live units in ID order.
func (f *Fleet) Units() []*Unit { return f.units }

// All iterates over the live units in ID order.
func (f *Fleet) All() iter.Seq[*Unit] {
	return func(yield func(*Unit) bool) {
		for _, u := range f.units {
			if !yield(u) {
				return
			}
		}
	}
}

// Get returns the unit with the given ID, or nil.
func (f *Fleet) Get(id core.UnitID) *Unit {
	i, found := slices.BinarySearchFunc(f.units, id, func(u *Unit, id core.UnitID) int {
		return int(u.ID) - int(id)
	})
	if !found {
		return nil
	}
	return f.units[i]
}

// At returns the units standing on p in ID order.
func (f *Fleet) At(p core.Pos) []*Unit {
	var out []*Unit
	for _, u := range f.units {
		if u.Pos == p {
			out = append(out, u)
		}
	}
	return out
}

// CommitPlans records each unit's next position so the following Update
// can tell whether the unit moved as planned.
func (f *Fleet) CommitPlans() {
	for _, u := range f.units {
		u.expected, u.hasExpected = u.NextPosition(), true
	}
}

// PlannedPositions returns the next position of every unit.
func (f *Fleet) PlannedPositions() map[core.UnitID]core.Pos {
	out := make(map[core.UnitID]core.Pos, len(f.units))
	for _, u := range f.units {
		out[u.ID] = u.NextPosition()
	}
	return out
}

// ExpectedSensorMask returns, row-major over a size x size grid, the cells
// that the units which followed their plan must see this turn.
func (f *Fleet) ExpectedSensorMask(size, radius int) []bool {
	mask := make([]bool, size*size)
	for _, u := range f.units {
		if !u.onPlan {
			continue
		}
		for y := max(0, u.Pos.Y-radius); y <= min(size-1, u.Pos.Y+radius); y++ {
			for x := max(0, u.Pos.X-radius); x <= min(size-1, u.Pos.X+radius); x++ {
				mask[y*size+x] = true
			}
		}
	}
	return mask
}

// Actions returns one record per unit slot. Slots without a live unit or
// without queued actions hold Center.
func (f *Fleet) Actions() []protocol.ActionRecord {
	out := make([]protocol.ActionRecord, f.cfg.Game.MaxUnits)
	for _, u := range f.units {
		if int(u.ID) >= len(out) || len(u.Actions) == 0 {
			continue
		}
		a := u.Actions[0]
		out[u.ID] = protocol.ActionRecord{int(a.Type), a.DX, a.DY}
	}
	return out
}

// Clone returns an independent copy of the fleet. Tasks are shared.
func (f *Fleet) Clone() *Fleet {
	out := &Fleet{Team: f.Team, Points: f.Points, cfg: f.cfg, units: make([]*Unit, len(f.units))}
	for i, u := range f.units {
		out.units[i] = u.clone()
	}
	return out
}
