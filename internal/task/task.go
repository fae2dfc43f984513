// Package task assigns goals to units each turn and turns them into
// action queues.
package task

import (
	"log/slog"

	"github.com/elektrokombinacija/relic-fleet/internal/algo"
	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
)

// Task kinds.
const (
	KindHarvest = "harvest"
	KindExplore = "explore"
	KindHeal    = "heal"
)

// Task is one unit's goal. Scores are comparable across kinds: the
// scheduler gives an idle unit the highest scoring candidate.
type Task interface {
	fleet.Task

	// Evaluate scores the task for its unit; higher is better.
	Evaluate(t *Turn) float64
	// Apply plans a path and fills the unit's action queue. It returns
	// false when no path exists.
	Apply(t *Turn) bool
	// Completed reports whether the goal has been reached.
	Completed(t *Turn) bool
	// Valid reports whether the target is still usable.
	Valid(t *Turn) bool
}

// Generator proposes the best task of one kind for a unit, or nil.
type Generator interface {
	Kind() string
	Generate(t *Turn, u *fleet.Unit) Task
}

// Turn is the shared planning context of one scheduling pass.
type Turn struct {
	Cfg          *config.Config
	Grid         *core.Grid
	Fleet        *fleet.Fleet
	RelicsFound  bool
	RewardsFound bool

	Paths *algo.Pathfinder
	Table *algo.Reservations
	Plans core.Plans

	log      *slog.Logger
	claimed  map[core.Pos]core.UnitID
	searches map[core.UnitID]*algo.ResumableSearch
	heal     []float64
}

// NewTurn prepares an empty planning context.
func NewTurn(cfg *config.Config, g *core.Grid, own *fleet.Fleet, relicsFound, rewardsFound bool, logger *slog.Logger) *Turn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Turn{
		Cfg:          cfg,
		Grid:         g,
		Fleet:        own,
		RelicsFound:  relicsFound,
		RewardsFound: rewardsFound,
		Paths:        algo.NewPathfinder(g, cfg),
		Table:        algo.NewReservations(),
		Plans:        make(core.Plans),
		log:          logger,
		claimed:      make(map[core.Pos]core.UnitID),
		searches:     make(map[core.UnitID]*algo.ResumableSearch),
	}
}

// Claim reserves target p for unit id. It fails when another unit holds it.
func (t *Turn) Claim(p core.Pos, id core.UnitID) bool {
	if holder, ok := t.claimed[p]; ok && holder != id {
		return false
	}
	t.claimed[p] = id
	return true
}

// Release returns p to the pool.
func (t *Turn) Release(p core.Pos) { delete(t.claimed, p) }

// Claimed reports whether any unit holds p.
func (t *Turn) Claimed(p core.Pos) bool {
	_, ok := t.claimed[p]
	return ok
}

// Search returns the distance search rooted at u, shared by every
// candidate evaluated for u this turn.
func (t *Turn) Search(u *fleet.Unit) *algo.ResumableSearch {
	rs, ok := t.searches[u.ID]
	if !ok || rs.Start() != u.Pos {
		rs = t.Paths.NewResumableSearch(u.Pos)
		t.searches[u.ID] = rs
	}
	return rs
}

// planTo commits a path from u to goal. It returns false when there is
// none; the unit's queue is then left empty. A unit already on goal holds
// there when no earlier plan crosses the cell, and otherwise steps aside
// and comes back.
func (t *Turn) planTo(u *fleet.Unit, goal core.Pos) bool {
	u.Actions = nil
	path, ok, err := t.Paths.FindPath(u.Pos, goal, u.Energy, t.Table)
	if err != nil {
		t.log.Error("path request rejected", "unit", u.ID, "from", u.Pos, "to", goal, "err", err)
		return false
	}
	if !ok {
		return false
	}
	actions, err := algo.PathToActions(path)
	if err != nil {
		t.log.Error("path is not walkable step by step", "unit", u.ID, "err", err)
		return false
	}
	u.Actions = actions
	t.Table.ReservePath(u.ID, path)
	t.Plans[u.ID] = path
	return true
}

// nearestUnclaimed ranks cells by distance from u and returns the closest
// one nobody has claimed.
func (t *Turn) nearestUnclaimed(u *fleet.Unit, cells []core.Pos) (core.Pos, float64, bool) {
	free := cells[:0:0]
	for _, p := range cells {
		if !t.Claimed(p) {
			free = append(free, p)
		}
	}
	return t.Search(u).Nearest(free)
}
