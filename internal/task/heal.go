package task

import (
	"math"
	"slices"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
)

// Heal parks a unit on a high energy cell near likely reward areas.
// It is re-chosen every turn.
type Heal struct {
	unit   *fleet.Unit
	target core.Pos
}

func (h *Heal) Kind() string             { return KindHeal }
func (h *Heal) Target() (core.Pos, bool) { return h.target, true }
func (h *Heal) Completed(*Turn) bool     { return true }
func (h *Heal) String() string           { return KindHeal + h.target.String() }

func (h *Heal) Valid(t *Turn) bool {
	return t.Grid.Walkable(h.target)
}

// Evaluate favours drained units that are far from the opponent spawn.
func (h *Heal) Evaluate(t *Turn) float64 {
	s, game := t.Cfg.Scoring, t.Cfg.Game
	deficit := float64(game.MaxUnitEnergy - h.unit.Energy)
	spawn := core.Manhattan(OpponentSpawn(t.Fleet.Team, t.Grid.Size), h.unit.Pos)
	return s.HealBase + s.HealEnergyDeficit*deficit + s.HealOppSpawn*float64(spawn)
}

func (h *Heal) Apply(t *Turn) bool {
	return t.planTo(h.unit, h.target)
}

// OpponentSpawn is the spawn corner of the team playing against team.
func OpponentSpawn(team, size int) core.Pos {
	if team == 0 {
		return core.Pos{X: size - 1, Y: size - 1}
	}
	return core.Pos{}
}

// HealField scores every cell, row-major, as a place to recover energy.
// It blends how many possible relics lie nearby, smoothed and damped
// towards the map edge, with the believed tile energy.
func HealField(g *core.Grid, cfg *config.Config) []float64 {
	n := g.Size
	h := cfg.Heal

	nearby := make([]int, n*n)
	for c := range g.All() {
		if c.Relic != core.StateFalse {
			nearby[g.Index(c.Pos)] = 1
		}
	}
	counts := core.WindowSum(nearby, n, h.RewardRadius)

	field := make([]float64, n*n)
	for i, v := range counts {
		field[i] = math.Pow(float64(v), 1/h.Relaxation)
	}
	field = core.Convolve(field, n, h.Kernel)

	// ring i: corners are scaled by both their row and their column
	for i, k := range h.BoundaryPenalty {
		if i >= n-i {
			break
		}
		for j := i; j < n-i; j++ {
			field[i*n+j] *= k
			field[(n-1-i)*n+j] *= k
			field[j*n+i] *= k
			field[j*n+n-1-i] *= k
		}
	}

	for c := range g.All() {
		i := g.Index(c.Pos)
		if !c.Walkable() {
			field[i] = 0
			continue
		}
		if !c.HasEnergy {
			continue
		}
		e := c.Energy
		if c.Type == core.Nebula {
			e -= cfg.Game.NebulaEnergyReduction
		}
		field[i] += float64(e) * h.EnergyMultiplier
	}

	for i, v := range field {
		field[i] = max(v, 0)
	}
	return field
}

// HealField returns the turn's shared heal field, computing it once.
func (t *Turn) HealField() []float64 {
	if t.heal == nil {
		t.heal = HealField(t.Grid, t.Cfg)
	}
	return t.heal
}

// HealGenerator picks the nearest reachable cell whose score ties the best
// one, after penalising the surroundings of other units' heal targets.
type HealGenerator struct{}

func (HealGenerator) Kind() string { return KindHeal }

func (HealGenerator) Generate(t *Turn, u *fleet.Unit) Task {
	g := t.Grid
	score := slices.Clone(t.HealField())

	for _, other := range t.Fleet.Units() {
		if other.ID == u.ID {
			continue
		}
		heal, ok := other.Task.(*Heal)
		if !ok {
			continue
		}
		addBunchingPenalty(g, score, heal.target, t.Cfg.Heal.BunchingPenalty)
	}

	rs := t.Search(u)
	var reachable []core.Pos
	best := math.Inf(-1)
	for _, p := range rs.Reachable() {
		if t.Claimed(p) {
			continue
		}
		reachable = append(reachable, p)
		best = max(best, score[g.Index(p)])
	}

	var ties []core.Pos
	for _, p := range reachable {
		if score[g.Index(p)] >= best-t.Cfg.Heal.TieEpsilon {
			ties = append(ties, p)
		}
	}

	target, _, ok := rs.Nearest(ties)
	if !ok {
		return nil
	}
	if !u.CanMove(t.Cfg) && target != u.Pos {
		return nil
	}
	return &Heal{unit: u, target: target}
}

func addBunchingPenalty(g *core.Grid, score []float64, p core.Pos, penalty float64) {
	score[g.Index(p)] -= penalty
	for _, d := range core.Directions {
		if q := p.Add(d.X, d.Y); g.InBounds(q) {
			score[g.Index(q)] -= penalty
		}
	}
}
