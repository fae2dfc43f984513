package infer

import (
	"fmt"
	"log/slog"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

// Engine merges observations into a Grid and derives relic and reward
// knowledge from them.
type Engine struct {
	Grid      *core.Grid
	Estimator *Estimator

	cfg     *config.Config
	team    int
	log     *slog.Logger
	metrics *metrics.Metrics

	relicsFound  bool
	rewardsFound bool
}

// NewEngine creates an engine over an empty grid for the given team.
func NewEngine(cfg *config.Config, team int, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Grid:      core.NewGrid(cfg.Game.SpaceSize, cfg.Inference.MaxRewardObservations),
		Estimator: NewEstimator(cfg, logger, m),
		cfg:       cfg,
		team:      team,
		log:       logger,
		metrics:   m,
	}
}

// RelicsFound reports whether every relic has been located.
func (e *Engine) RelicsFound() bool { return e.relicsFound }

// RewardsFound reports whether every cell has a known reward status.
func (e *Engine) RewardsFound() bool { return e.rewardsFound }

// Update folds one turn into the grid. reward is the number of points the
// team gained this turn; it is logged as evidence only when record is set.
// A returned error means an explored cell was contradicted and the grid can
// no longer be trusted.
func (e *Engine) Update(obs *protocol.Observation, reward int, record bool) error {
	e.Estimator.PreShift(e.Grid, obs.Steps)
	energyShifted := e.Estimator.Update(e.Grid, obs)

	if err := e.merge(obs, energyShifted); err != nil {
		return fmt.Errorf("merge step %d: %w", obs.Steps, err)
	}
	if err := e.updateRelics(obs); err != nil {
		return fmt.Errorf("relics step %d: %w", obs.Steps, err)
	}

	e.rewardsFound = e.Grid.AllRewardsExplored()
	if e.rewardsFound {
		return nil
	}
	if err := e.eliminateByDistance(); err != nil {
		return fmt.Errorf("reward range step %d: %w", obs.Steps, err)
	}
	if record {
		e.recordReward(obs, reward)
	}
	if err := e.resolveObservations(); err != nil {
		return fmt.Errorf("reward evidence step %d: %w", obs.Steps, err)
	}
	e.rewardsFound = e.Grid.AllRewardsExplored()
	return nil
}

func (e *Engine) merge(obs *protocol.Observation, energyShifted bool) error {
	g := e.Grid
	for c := range g.All() {
		visible := obs.Visible(c.Pos)
		g.SetVisible(c.Pos, visible)

		switch {
		case visible:
			g.SetEnergy(c.Pos, obs.EnergyAt(c.Pos))
		case energyShifted:
			g.ClearEnergy(c.Pos)
		}

		// re-read: an earlier mirror write may already have typed this cell
		if visible && g.At(c.Pos).Type == core.Unknown {
			if err := g.SetType(c.Pos, obs.TileAt(c.Pos)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) updateRelics(obs *protocol.Observation) error {
	g := e.Grid
	for _, p := range obs.Relics() {
		if err := g.SetRelic(p, true); err != nil {
			return err
		}
	}
	for c := range g.All() {
		if c.Visible && !g.At(c.Pos).Relic.Known() {
			if err := g.SetRelic(c.Pos, false); err != nil {
				return err
			}
		}
	}

	if e.relicsFound {
		return nil
	}
	total := len(obs.RelicNodesMask)
	if g.AllRelicsExplored() || (total > 0 && g.RelicCount() >= total) {
		e.relicsFound = true
		e.log.Info("all relics located", "step", obs.Steps, "relics", g.RelicCount())
		for c := range g.All() {
			if !g.At(c.Pos).Relic.Known() {
				if err := g.SetRelic(c.Pos, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ApplyExpectedVisibility types as Nebula every unknown cell that the fleet
// should have seen this turn but did not. expected is row-major.
func (e *Engine) ApplyExpectedVisibility(expected []bool) error {
	g := e.Grid
	for i, want := range expected {
		if !want {
			continue
		}
		p := g.PosAt(i)
		c := g.At(p)
		if c.Visible || c.Type != core.Unknown {
			continue
		}
		if err := g.SetType(p, core.Nebula); err != nil {
			return err
		}
	}
	return nil
}
