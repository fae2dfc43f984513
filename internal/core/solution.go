package core

// UnitID identifies a unit within its team.
type UnitID int

// Path is a sequence of positions indexed by time step: Path[0] is where
// the unit stands now, Path[t] where it will be after t actions.
type Path []Pos

// At returns the planned position at step t. A unit stays on its last
// position once the path is exhausted.
func (p Path) At(t int) Pos {
	if t >= len(p) {
		return p[len(p)-1]
	}
	return p[t]
}

// End returns the final position of the path.
func (p Path) End() Pos { return p[len(p)-1] }

// Plans maps units to their committed paths for the current turn.
type Plans map[UnitID]Path
