package core

import (
	"errors"
	"slices"
	"testing"
)

func checkSymmetric(t *testing.T, g *Grid) {
	t.Helper()
	for c := range g.All() {
		m := g.At(g.Opposite(c.Pos))
		if c.Type != m.Type || c.Relic != m.Relic || c.Reward != m.Reward {
			t.Errorf("%v (%v %v %v) differs from mirror %v (%v %v %v)",
				c.Pos, c.Type, c.Relic, c.Reward, m.Pos, m.Type, m.Relic, m.Reward)
		}
	}
}

func mustSet(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpposite(t *testing.T) {
	g := NewGrid(6, 0)
	tests := []struct {
		p, want Pos
	}{
		{Pos{0, 0}, Pos{5, 5}},
		{Pos{1, 2}, Pos{3, 4}},
		{Pos{5, 0}, Pos{5, 0}},
	}
	for _, tt := range tests {
		if got := g.Opposite(tt.p); got != tt.want {
			t.Errorf("Opposite(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	// applying the mirror twice is the identity
	for c := range g.All() {
		if got := g.Opposite(g.Opposite(c.Pos)); got != c.Pos {
			t.Errorf("Opposite(Opposite(%v)) = %v", c.Pos, got)
		}
	}
}

func TestSettersMirror(t *testing.T) {
	g := NewGrid(6, 0)
	mustSet(t, g.SetType(Pos{1, 2}, Obstacle))
	mustSet(t, g.SetType(Pos{0, 0}, Nebula))
	mustSet(t, g.SetRelic(Pos{2, 1}, true))
	mustSet(t, g.SetRelic(Pos{0, 3}, false))
	mustSet(t, g.SetReward(Pos{3, 3}, true))
	mustSet(t, g.SetReward(Pos{4, 0}, false))

	if got := g.At(Pos{3, 4}).Type; got != Obstacle {
		t.Errorf("type at (3,4) = %v, want Obstacle", got)
	}
	if got := g.At(Pos{5, 5}).Type; got != Nebula {
		t.Errorf("type at (5,5) = %v, want Nebula", got)
	}
	if got := g.At(Pos{4, 3}).Relic; got != StateTrue {
		t.Errorf("relic at (4,3) = %v, want true", got)
	}
	if got := g.At(Pos{2, 2}).Reward; got != StateTrue {
		t.Errorf("reward at (2,2) = %v, want true", got)
	}
	if got, want := g.RelicCells(), []Pos{{2, 1}, {4, 3}}; !slices.Equal(got, want) {
		t.Errorf("RelicCells = %v, want %v", got, want)
	}
	if got, want := g.RewardCells(), []Pos{{2, 2}, {3, 3}}; !slices.Equal(got, want) {
		t.Errorf("RewardCells = %v, want %v", got, want)
	}
	if got := g.RelicCount(); got != 2 {
		t.Errorf("RelicCount = %d, want 2", got)
	}
	checkSymmetric(t, g)
}

func TestExploredImmutability(t *testing.T) {
	g := NewGrid(6, 0)
	mustSet(t, g.SetReward(Pos{1, 1}, true))

	// same value is a no-op
	mustSet(t, g.SetReward(Pos{1, 1}, true))
	mustSet(t, g.SetReward(g.Opposite(Pos{1, 1}), true))

	err := g.SetReward(Pos{1, 1}, false)
	if !errors.Is(err, ErrExploredConflict) {
		t.Fatalf("expected ErrExploredConflict, got %v", err)
	}
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Attribute != "reward" {
		t.Errorf("expected reward ConflictError, got %#v", err)
	}
	if got := g.At(Pos{1, 1}).Reward; got != StateTrue {
		t.Errorf("reward at (1,1) = %v after rejected write, want true", got)
	}

	mustSet(t, g.SetRelic(Pos{0, 1}, false))
	for _, p := range []Pos{{0, 1}, g.Opposite(Pos{0, 1})} {
		if err := g.SetRelic(p, true); !errors.Is(err, ErrExploredConflict) {
			t.Errorf("SetRelic(%v, true) err = %v, want conflict", p, err)
		}
	}
	if got := g.At(g.Opposite(Pos{0, 1})).Relic; got != StateFalse {
		t.Errorf("mirrored relic = %v, want false", got)
	}
}

func TestOutOfBounds(t *testing.T) {
	g := NewGrid(4, 0)
	tests := []struct {
		name string
		err  error
	}{
		{"SetType", g.SetType(Pos{4, 0}, Empty)},
		{"SetRelic", g.SetRelic(Pos{-1, 0}, true)},
		{"SetReward", g.SetReward(Pos{0, 9}, true)},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, ErrOutOfBounds) {
			t.Errorf("%s: err = %v, want ErrOutOfBounds", tt.name, tt.err)
		}
	}

	if c := g.At(Pos{7, 7}); c.Type != Unknown {
		t.Errorf("off-grid type = %v, want Unknown", c.Type)
	}
	if g.Walkable(Pos{7, 7}) {
		t.Error("off-grid cell is walkable")
	}
}

func TestShift(t *testing.T) {
	g := NewGrid(6, 0)
	mustSet(t, g.SetType(Pos{1, 1}, Obstacle))
	mustSet(t, g.SetType(Pos{5, 0}, Nebula))
	mustSet(t, g.SetRelic(Pos{1, 1}, true))

	moved := g.Shift(1, -1)

	tests := []struct {
		name string
		grid *Grid
		p    Pos
		want TileType
	}{
		{"source grid untouched", g, Pos{1, 1}, Obstacle},
		{"obstacle moved", moved, Pos{2, 0}, Obstacle},
		{"mirror moved", moved, g.Opposite(Pos{2, 0}), Obstacle},
		{"wraparound (5,0)+(1,-1)", moved, Pos{0, 5}, Nebula},
	}
	for _, tt := range tests {
		if got := tt.grid.At(tt.p).Type; got != tt.want {
			t.Errorf("%s: type at %v = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}
	// only types move
	if got := moved.At(Pos{1, 1}).Relic; got != StateTrue {
		t.Errorf("relic at (1,1) = %v after shift, want true", got)
	}
	checkSymmetric(t, moved)

	g.ShiftInPlace(1, -1)
	for c := range g.All() {
		if want := moved.At(c.Pos).Type; c.Type != want {
			t.Errorf("ShiftInPlace: type at %v = %v, want %v", c.Pos, c.Type, want)
		}
	}
}

func TestInvalidateTypes(t *testing.T) {
	g := NewGrid(4, 0)
	mustSet(t, g.SetType(Pos{0, 0}, Obstacle))
	g.InvalidateTypes()
	for c := range g.All() {
		if c.Type != Unknown {
			t.Errorf("type at %v = %v after invalidation", c.Pos, c.Type)
		}
	}
}

func TestObservationLogIsCapped(t *testing.T) {
	g := NewGrid(4, 2)
	for i := 0; i < 3; i++ {
		g.AppendObservation(RewardObservation{Cells: []Pos{{i, 0}}, Reward: i})
	}
	obs := g.Observations()
	if len(obs) != 2 {
		t.Fatalf("kept %d observations, want 2", len(obs))
	}
	if obs[0].Reward != 1 || obs[1].Reward != 2 {
		t.Errorf("kept rewards %d, %d; want the newest two (1, 2)", obs[0].Reward, obs[1].Reward)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGrid(4, 0)
	g.AppendObservation(RewardObservation{Cells: []Pos{{0, 0}}, Reward: 1})
	c := g.Clone()
	mustSet(t, c.SetRelic(Pos{1, 1}, true))
	c.Observations()[0].Cells[0] = Pos{3, 3}

	if got := g.At(Pos{1, 1}).Relic; got != StateUnknown {
		t.Errorf("source relic = %v, want unknown", got)
	}
	if got := g.RelicCount(); got != 0 {
		t.Errorf("source RelicCount = %d, want 0", got)
	}
	if got := g.Observations()[0].Cells[0]; got != (Pos{0, 0}) {
		t.Errorf("source observation cell = %v, want (0,0)", got)
	}
}
