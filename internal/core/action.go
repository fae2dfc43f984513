package core

// ActionType is the per-unit command sent to the host each turn.
type ActionType int

const (
	Center ActionType = iota
	Up
	Right
	Down
	Left
	Sap
)

var actionNames = [...]string{"center", "up", "right", "down", "left", "sap"}

func (a ActionType) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "invalid"
}

// Action is one queued command. DX and DY are the target offset of a Sap
// and zero otherwise.
type Action struct {
	Type   ActionType
	DX, DY int
}

// Delta returns the displacement the action applies to its unit.
func (a Action) Delta() Pos {
	switch a.Type {
	case Up, Right, Down, Left:
		return Directions[a.Type-Up]
	}
	return Pos{}
}

// MoveTowards returns the move action from a to an adjacent b, or Center
// when a == b. ok is false when b is not adjacent.
func MoveTowards(a, b Pos) (act Action, ok bool) {
	d := Pos{X: b.X - a.X, Y: b.Y - a.Y}
	if d == (Pos{}) {
		return Action{Type: Center}, true
	}
	for i, dir := range Directions {
		if d == dir {
			return Action{Type: Up + ActionType(i)}, true
		}
	}
	return Action{}, false
}
