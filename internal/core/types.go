// Package core defines the grid model of the decision core.
package core

import (
	"errors"
	"fmt"
)

// TileType classifies a cell. Unknown is internal; the host only sends
// Empty, Nebula and Obstacle.
type TileType int

const (
	Unknown  TileType = -1
	Empty    TileType = 0
	Nebula   TileType = 1 // passable, drains energy, blocks vision
	Obstacle TileType = 2 // impassable, drifts periodically
)

func (t TileType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Empty:
		return "Empty"
	case Nebula:
		return "Nebula"
	case Obstacle:
		return "Obstacle"
	default:
		return fmt.Sprintf("TileType(%d)", int(t))
	}
}

// Walkable reports whether a unit may enter a tile of this type.
// Unknown tiles are optimistically walkable.
func (t TileType) Walkable() bool {
	return t != Obstacle
}

// TriState is a boolean that may not be known yet. Once a value other than
// Unknown is held it never changes.
type TriState int8

const (
	StateUnknown TriState = iota
	StateFalse
	StateTrue
)

func (s TriState) String() string {
	return [...]string{"Unknown", "False", "True"}[s]
}

// Known reports whether the value has been explored.
func (s TriState) Known() bool { return s != StateUnknown }

// IsTrue reports whether the value is known to be true.
func (s TriState) IsTrue() bool { return s == StateTrue }

// IsFalse reports whether the value is known to be false.
func (s TriState) IsFalse() bool { return s == StateFalse }

// TriOf converts a bool into a known TriState.
func TriOf(b bool) TriState {
	if b {
		return StateTrue
	}
	return StateFalse
}

// ErrExploredConflict marks an attempt to relabel an explored attribute.
// It signals a logic defect, not bad evidence.
var ErrExploredConflict = errors.New("explored attribute conflict")

// ErrOutOfBounds is returned for coordinates outside the grid.
var ErrOutOfBounds = errors.New("position out of bounds")

// ConflictError describes an ErrExploredConflict.
type ConflictError struct {
	Pos       Pos
	Attribute string
	Held      TriState
	Observed  bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s status of %v is %v, refusing %v: %v",
		e.Attribute, e.Pos, e.Held, e.Observed, ErrExploredConflict)
}

func (e *ConflictError) Unwrap() error { return ErrExploredConflict }

// Observe is the transition function for a TriState. Observing the held
// value (or anything on Unknown) succeeds; observing the opposite of an
// explored value fails with ErrExploredConflict.
func Observe(cur TriState, observed bool) (TriState, error) {
	next := TriOf(observed)
	if cur.Known() && cur != next {
		return cur, ErrExploredConflict
	}
	return next, nil
}
