package task

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/relic-fleet/internal/algo"
	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

const size = 6

type world struct {
	cfg   *config.Config
	grid  *core.Grid
	fleet *fleet.Fleet
}

// newWorld builds an all-empty grid with every relic status known.
func newWorld(t *testing.T) *world {
	t.Helper()
	cfg := config.Default()
	cfg.Game.SpaceSize = size
	cfg.Game.MaxUnits = 4
	g := core.NewGrid(size, 0)
	for c := range g.All() {
		require.NoError(t, g.SetType(c.Pos, core.Empty))
		require.NoError(t, g.SetRelic(c.Pos, false))
	}
	return &world{cfg: &cfg, grid: g, fleet: fleet.New(0, &cfg)}
}

func (w *world) units(energy int, positions ...core.Pos) {
	o := &protocol.Observation{
		UnitsMask: [][]bool{make([]bool, 4), make([]bool, 4)},
		Units: protocol.Units{
			Position: [][][2]int{make([][2]int, 4), make([][2]int, 4)},
			Energy:   [][]int{make([]int, 4), make([]int, 4)},
		},
		TeamPoints: []int{0, 0},
	}
	for i, p := range positions {
		o.UnitsMask[0][i] = true
		o.Units.Position[0][i] = [2]int{p.X, p.Y}
		o.Units.Energy[0][i] = energy
	}
	w.fleet.Update(o)
}

func (w *world) turn(rewardsFound bool) *Turn {
	return NewTurn(w.cfg, w.grid, w.fleet, true, rewardsFound, nil)
}

func (w *world) markRewardsKnown(t *testing.T, except ...core.Pos) {
	t.Helper()
	skip := make(map[core.Pos]bool)
	for _, p := range except {
		skip[p], skip[w.grid.Opposite(p)] = true, true
	}
	for c := range w.grid.All() {
		if !skip[c.Pos] && !c.Reward.Known() {
			require.NoError(t, w.grid.SetReward(c.Pos, false))
		}
	}
}

func targetOf(t *testing.T, u *fleet.Unit) core.Pos {
	t.Helper()
	require.NotNil(t, u.Task, "unit %d has no task", u.ID)
	p, ok := u.Task.Target()
	require.True(t, ok)
	return p
}

func TestHarvestExclusivityMoreUnits(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 1, Y: 1}, true)) // and (4,4)
	w.units(100, core.Pos{X: 0, Y: 0}, core.Pos{X: 5, Y: 5}, core.Pos{X: 0, Y: 5})

	turn := w.turn(false)
	NewScheduler(w.cfg, nil, nil, HarvestGenerator{}).Plan(turn)

	assert.Equal(t, core.Pos{X: 1, Y: 1}, targetOf(t, w.fleet.Get(0)))
	assert.Equal(t, core.Pos{X: 4, Y: 4}, targetOf(t, w.fleet.Get(1)))
	assert.Nil(t, w.fleet.Get(2).Task)
	assert.Empty(t, w.fleet.Get(2).Actions)
	assert.Len(t, turn.Plans, 2)
}

func TestHarvestExclusivityMoreTargets(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 1, Y: 1}, true))
	require.NoError(t, w.grid.SetReward(core.Pos{X: 2, Y: 0}, true))
	w.units(100, core.Pos{X: 1, Y: 0}, core.Pos{X: 1, Y: 0})

	NewScheduler(w.cfg, nil, nil, HarvestGenerator{}).Plan(w.turn(false))

	a, b := targetOf(t, w.fleet.Get(0)), targetOf(t, w.fleet.Get(1))
	assert.NotEqual(t, a, b)
	assert.Equal(t, core.Pos{X: 2, Y: 0}, a, "ties go to the first candidate in row-major order")
	assert.Equal(t, core.Pos{X: 1, Y: 1}, b)
}

func TestHarvestHoldsOnTarget(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 2, Y: 2}, true))
	w.units(100, core.Pos{X: 2, Y: 2})

	s := NewScheduler(w.cfg, nil, nil)
	s.Plan(w.turn(false))
	u := w.fleet.Get(0)
	assert.Equal(t, KindHarvest, u.Task.Kind())
	assert.Empty(t, u.Actions)

	task := u.Task
	turn := w.turn(false)
	s.Plan(turn)
	assert.Same(t, task, u.Task, "task is kept")
	assert.Empty(t, u.Actions)
	assert.True(t, turn.Claimed(core.Pos{X: 2, Y: 2}))
}

func TestHolderStepsAsideForEarlierPlan(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 3, Y: 2}, true))
	require.NoError(t, w.grid.SetReward(core.Pos{X: 2, Y: 2}, true))
	w.units(100, core.Pos{X: 1, Y: 2}, core.Pos{X: 2, Y: 2})

	// unit 0 is planned first and walks through the cell unit 1 harvests on
	u0, u1 := w.fleet.Get(0), w.fleet.Get(1)
	u0.Task = &Harvest{unit: u0, target: core.Pos{X: 3, Y: 2}}
	held := &Harvest{unit: u1, target: core.Pos{X: 2, Y: 2}}
	u1.Task = held

	m := metrics.New(prometheus.NewRegistry())
	turn := w.turn(false)
	NewScheduler(w.cfg, nil, m, HarvestGenerator{}).Plan(turn)

	assert.Equal(t, core.Path{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}}, turn.Plans[0])
	p1 := turn.Plans[1]
	require.Len(t, p1, 3)
	assert.NotEqual(t, core.Pos{X: 2, Y: 2}, p1[1], "unit 1 leaves while unit 0 passes")
	assert.Equal(t, core.Pos{X: 2, Y: 2}, p1[2])
	assert.Len(t, u1.Actions, 2)
	assert.Same(t, held, u1.Task, "the harvest task is kept")
	assert.Nil(t, algo.FindFirstConflict(turn.Plans))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PlanConflicts))
}

func TestKeptTaskKeepsItsClaim(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 1, Y: 1}, true))
	w.units(100, core.Pos{X: 1, Y: 0}, core.Pos{X: 3, Y: 3})

	// unit 1 already heads for (1,1) although unit 0 is closer
	w.fleet.Get(1).Task = &Harvest{unit: w.fleet.Get(1), target: core.Pos{X: 1, Y: 1}}

	NewScheduler(w.cfg, nil, nil, HarvestGenerator{}).Plan(w.turn(false))

	assert.Equal(t, core.Pos{X: 1, Y: 1}, targetOf(t, w.fleet.Get(1)))
	assert.Equal(t, core.Pos{X: 4, Y: 4}, targetOf(t, w.fleet.Get(0)))
}

func TestFailedTaskIsReleased(t *testing.T) {
	w := newWorld(t)
	// (0,0) and its mirror (5,5) are walled in
	require.NoError(t, w.grid.SetType(core.Pos{X: 1, Y: 0}, core.Obstacle))
	require.NoError(t, w.grid.SetType(core.Pos{X: 0, Y: 1}, core.Obstacle))
	require.NoError(t, w.grid.SetReward(core.Pos{X: 0, Y: 0}, true))
	w.units(100, core.Pos{X: 3, Y: 3})
	u := w.fleet.Get(0)
	u.Task = &Harvest{unit: u, target: core.Pos{X: 0, Y: 0}}

	m := metrics.New(prometheus.NewRegistry())
	turn := w.turn(false)
	NewScheduler(w.cfg, nil, m, HarvestGenerator{}).Plan(turn)

	assert.Nil(t, u.Task)
	assert.Empty(t, u.Actions)
	assert.False(t, turn.Claimed(core.Pos{X: 0, Y: 0}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanFailures.WithLabelValues(KindHarvest)))
}

func TestExploreNearestUnknown(t *testing.T) {
	w := newWorld(t)
	w.markRewardsKnown(t, core.Pos{X: 3, Y: 0}) // mirror (5,2)
	w.units(100, core.Pos{X: 0, Y: 0})

	turn := w.turn(false)
	NewScheduler(w.cfg, nil, nil, ExploreGenerator{}).Plan(turn)

	u := w.fleet.Get(0)
	assert.Equal(t, core.Pos{X: 3, Y: 0}, targetOf(t, u))
	assert.Equal(t, []core.Action{{Type: core.Right}, {Type: core.Right}, {Type: core.Right}}, u.Actions)

	task := u.Task.(Task)
	assert.False(t, task.Completed(turn))
	require.NoError(t, w.grid.SetReward(core.Pos{X: 3, Y: 0}, false))
	assert.True(t, task.Completed(turn))
}

func TestExploreNothingLeft(t *testing.T) {
	w := newWorld(t)
	w.markRewardsKnown(t)
	w.units(100, core.Pos{X: 0, Y: 0})

	assert.Nil(t, ExploreGenerator{}.Generate(w.turn(true), w.fleet.Get(0)))
	assert.Nil(t, ExploreGenerator{}.Generate(w.turn(false), w.fleet.Get(0)))
}

func TestHarvestBeatsExplore(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.grid.SetReward(core.Pos{X: 2, Y: 0}, true))
	w.units(100, core.Pos{X: 0, Y: 0})

	NewScheduler(w.cfg, nil, nil, ExploreGenerator{}, HarvestGenerator{}).Plan(w.turn(false))

	assert.Equal(t, KindHarvest, w.fleet.Get(0).Task.Kind())
}

func TestHealField(t *testing.T) {
	w := newWorld(t)
	// fresh grid: every relic status unknown
	g := core.NewGrid(size, 0)
	for c := range g.All() {
		require.NoError(t, g.SetType(c.Pos, core.Empty))
	}
	require.NoError(t, g.SetType(core.Pos{X: 1, Y: 3}, core.Obstacle)) // mirror (2,4)
	require.NoError(t, g.SetType(core.Pos{X: 3, Y: 2}, core.Nebula))   // self-mirrored
	g.SetEnergy(core.Pos{X: 2, Y: 2}, 4)
	g.SetEnergy(core.Pos{X: 3, Y: 2}, 8)
	g.SetEnergy(core.Pos{X: 2, Y: 3}, -20)

	cfg := *w.cfg
	cfg.Heal.RewardRadius = 0
	cfg.Heal.Relaxation = 1
	cfg.Heal.Kernel = [][]float64{{1}}
	cfg.Heal.BoundaryPenalty = []float64{0.5}
	field := HealField(g, &cfg)

	at := func(x, y int) float64 { return field[y*size+x] }
	assert.InDelta(t, 0.25, at(0, 0), 1e-9, "corners are damped twice")
	assert.InDelta(t, 0.5, at(2, 0), 1e-9)
	assert.InDelta(t, 0.5, at(0, 4), 1e-9)
	assert.InDelta(t, 1, at(3, 3), 1e-9)
	assert.InDelta(t, 0, at(1, 3), 1e-9, "obstacles score zero")
	assert.InDelta(t, 0, at(2, 4), 1e-9)
	assert.InDelta(t, 2, at(2, 2), 1e-9)
	assert.InDelta(t, 0.5, at(3, 2), 1e-9, "nebula drains energy")
	assert.InDelta(t, 0, at(2, 3), 1e-9, "scores are clamped at zero")
}

func TestHealBunching(t *testing.T) {
	w := newWorld(t)
	w.markRewardsKnown(t)
	w.grid.SetEnergy(core.Pos{X: 2, Y: 2}, 20)
	w.grid.SetEnergy(core.Pos{X: 2, Y: 3}, 20)
	w.grid.SetEnergy(core.Pos{X: 4, Y: 4}, 16)
	w.units(100, core.Pos{X: 0, Y: 0}, core.Pos{X: 5, Y: 5})

	NewScheduler(w.cfg, nil, nil, HealGenerator{}).Plan(w.turn(true))

	assert.Equal(t, core.Pos{X: 2, Y: 2}, targetOf(t, w.fleet.Get(0)))
	assert.Equal(t, core.Pos{X: 4, Y: 4}, targetOf(t, w.fleet.Get(1)),
		"the neighbour of a taken heal target loses to the next best cell")
}

func TestHealStuckUnit(t *testing.T) {
	w := newWorld(t)
	w.markRewardsKnown(t)
	w.grid.SetEnergy(core.Pos{X: 2, Y: 2}, 20)
	w.units(0, core.Pos{X: 0, Y: 0})

	assert.Nil(t, HealGenerator{}.Generate(w.turn(true), w.fleet.Get(0)))

	w.grid.SetEnergy(core.Pos{X: 0, Y: 0}, 20)
	task := HealGenerator{}.Generate(w.turn(true), w.fleet.Get(0))
	require.NotNil(t, task)
	p, _ := task.Target()
	assert.Equal(t, core.Pos{X: 0, Y: 0}, p)
}

func TestHealEvaluate(t *testing.T) {
	w := newWorld(t)
	w.units(300, core.Pos{X: 1, Y: 1})
	h := &Heal{unit: w.fleet.Get(0), target: core.Pos{X: 1, Y: 1}}

	// 0 + 0.1*(400-300) + 0.5*manhattan((5,5),(1,1))
	assert.InDelta(t, 14.0, h.Evaluate(w.turn(true)), 1e-9)
	assert.Equal(t, core.Pos{}, OpponentSpawn(1, size))
}

func TestSchedulerIsDeterministic(t *testing.T) {
	run := func() map[core.UnitID]core.Pos {
		w := newWorld(t)
		require.NoError(t, w.grid.SetReward(core.Pos{X: 2, Y: 1}, true))
		w.units(100, core.Pos{X: 0, Y: 0}, core.Pos{X: 3, Y: 3}, core.Pos{X: 5, Y: 0}, core.Pos{X: 0, Y: 5})
		NewScheduler(w.cfg, nil, nil).Plan(w.turn(false))
		out := make(map[core.UnitID]core.Pos)
		for _, u := range w.fleet.Units() {
			if u.Task != nil {
				out[u.ID], _ = u.Task.Target()
			}
		}
		return out
	}
	first := run()
	for range 5 {
		assert.Equal(t, first, run())
	}
}
