package task

import (
	"log/slog"
	"math"

	"github.com/elektrokombinacija/relic-fleet/internal/algo"
	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
)

// Scheduler assigns tasks to units once per turn.
type Scheduler struct {
	cfg        *config.Config
	generators []Generator
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// DefaultGenerators returns every task kind in tie-break order.
func DefaultGenerators() []Generator {
	return []Generator{HarvestGenerator{}, ExploreGenerator{}, HealGenerator{}}
}

// NewScheduler creates a scheduler over the given generators. Earlier
// generators win score ties.
func NewScheduler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, generators ...Generator) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(generators) == 0 {
		generators = DefaultGenerators()
	}
	return &Scheduler{cfg: cfg, generators: generators, log: logger, metrics: m}
}

// Plan runs one scheduling pass. Units are visited in ID order, so equal
// inputs always yield equal assignments.
func (s *Scheduler) Plan(t *Turn) {
	units := t.Fleet.Units()

	// finished or stale tasks
	for _, u := range units {
		task, ok := u.Task.(Task)
		if !ok || task.Completed(t) || !task.Valid(t) {
			s.drop(u)
		}
	}

	// kept tasks go first and are re-planned from the new position
	for _, u := range units {
		task, ok := u.Task.(Task)
		if !ok {
			continue
		}
		target, _ := task.Target()
		if !t.Claim(target, u.ID) {
			s.log.Debug("target taken, dropping task", "unit", u.ID, "task", task.Kind(), "target", target)
			s.drop(u)
			continue
		}
		if !task.Apply(t) {
			s.log.Debug("no path for kept task", "unit", u.ID, "task", task.Kind(), "target", target)
			s.metrics.PlanFailed(task.Kind())
			t.Release(target)
			s.drop(u)
		}
	}

	for _, u := range units {
		if u.Task != nil {
			continue
		}
		task := s.best(t, u)
		if task == nil {
			continue
		}
		target, _ := task.Target()
		t.Claim(target, u.ID)
		if !task.Apply(t) {
			s.log.Debug("no path for new task", "unit", u.ID, "task", task.Kind(), "target", target)
			s.metrics.PlanFailed(task.Kind())
			t.Release(target)
			u.Actions = nil
			continue
		}
		u.Task = task
		s.metrics.TaskAssigned(task.Kind())
	}

	if c := algo.FindFirstConflict(t.Plans); c != nil {
		s.log.Warn("committed plans collide",
			"unit1", c.Unit1, "unit2", c.Unit2, "pos", c.Pos, "step", c.Time, "edge", c.IsEdge)
		s.metrics.PlanConflict()
	}
}

func (s *Scheduler) drop(u *fleet.Unit) {
	u.Task = nil
	u.Actions = nil
}

// best returns the highest scoring candidate over all generators.
func (s *Scheduler) best(t *Turn, u *fleet.Unit) Task {
	var best Task
	bestScore := math.Inf(-1)
	for _, g := range s.generators {
		cand := g.Generate(t, u)
		if cand == nil {
			continue
		}
		if score := cand.Evaluate(t); best == nil || score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}
