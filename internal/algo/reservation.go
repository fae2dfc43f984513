package algo

import "github.com/elektrokombinacija/relic-fleet/internal/core"

type spaceTime struct {
	P core.Pos
	T int
}

type edgeTime struct {
	From, To core.Pos
	T        int // arrival step
}

type parking struct {
	unit core.UnitID
	from int
}

// Reservations is the time-indexed occupancy table of the committed plans
// of one turn. Step 0 is the present and is never reserved.
type Reservations struct {
	vertex map[spaceTime]core.UnitID
	edge   map[edgeTime]core.UnitID
	parked map[core.Pos]parking
	last   map[core.Pos]int
}

// NewReservations returns an empty table.
func NewReservations() *Reservations {
	return &Reservations{
		vertex: make(map[spaceTime]core.UnitID),
		edge:   make(map[edgeTime]core.UnitID),
		parked: make(map[core.Pos]parking),
		last:   make(map[core.Pos]int),
	}
}

// ReservePath claims every step of path for unit and parks the unit on the
// final cell from its arrival onward.
func (r *Reservations) ReservePath(unit core.UnitID, path core.Path) {
	if len(path) == 0 {
		return
	}
	for t := 1; t < len(path); t++ {
		p := path[t]
		r.vertex[spaceTime{p, t}] = unit
		r.last[p] = max(r.last[p], t)
		if prev := path[t-1]; prev != p {
			r.edge[edgeTime{prev, p, t}] = unit
		}
	}
	end := len(path) - 1
	if _, ok := r.parked[path[end]]; !ok {
		r.parked[path[end]] = parking{unit: unit, from: max(end, 1)}
	}
}

// Occupied reports the unit holding p at step t, if any.
func (r *Reservations) Occupied(p core.Pos, t int) (core.UnitID, bool) {
	if t < 1 {
		return 0, false
	}
	if u, ok := r.vertex[spaceTime{p, t}]; ok {
		return u, true
	}
	if pk, ok := r.parked[p]; ok && t >= pk.from {
		return pk.unit, true
	}
	return 0, false
}

// Swapped reports whether moving from a to b, arriving at step t, would
// pass a unit travelling the other way.
func (r *Reservations) Swapped(a, b core.Pos, t int) bool {
	if t < 1 || a == b {
		return false
	}
	_, ok := r.edge[edgeTime{b, a, t}]
	return ok
}

// FreeFrom reports whether p stays unclaimed from step t on.
func (r *Reservations) FreeFrom(p core.Pos, t int) bool {
	t = max(t, 1)
	if _, ok := r.parked[p]; ok {
		return false
	}
	last, ok := r.last[p]
	return !ok || last < t
}
