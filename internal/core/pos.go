package core

import "fmt"

// Pos is a cell coordinate. (0,0) is the top-left corner; y grows downward.
type Pos struct {
	X, Y int
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns p translated by (dx, dy).
func (p Pos) Add(dx, dy int) Pos { return Pos{X: p.X + dx, Y: p.Y + dy} }

// Less orders positions row-major. Every candidate pool is sorted with it.
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Manhattan returns the L1 distance.
func Manhattan(a, b Pos) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns the L-infinity distance.
func Chebyshev(a, b Pos) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

// Directions lists the four unit moves in action order: up, right, down, left.
var Directions = [4]Pos{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
