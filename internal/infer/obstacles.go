// Package infer reconstructs hidden map structure from partial observations:
// drifting obstacles, relic positions and reward-bearing tiles.
package infer

import (
	"log/slog"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

// ObstacleParams is the learned obstacle movement rule. Each value is
// meaningful only once its Found flag is set.
type ObstacleParams struct {
	Period         int
	PeriodFound    bool
	Direction      core.Pos
	DirectionFound bool
}

// Confirmed reports whether both parameters are known.
func (p ObstacleParams) Confirmed() bool {
	return p.PeriodFound && p.DirectionFound
}

// Estimator learns the period and direction of obstacle drift.
type Estimator struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	Params ObstacleParams
}

// NewEstimator creates an estimator with nothing confirmed.
func NewEstimator(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{cfg: cfg, log: logger, metrics: m}
}

// PreShift moves the obstacles of g by the confirmed rule when globalStep
// is a movement step. It reports whether a shift was applied.
func (e *Estimator) PreShift(g *core.Grid, globalStep int) bool {
	p := e.Params
	if !p.Confirmed() || p.Period <= 0 || (globalStep-1)%p.Period != 0 {
		return false
	}
	g.ShiftInPlace(p.Direction.X, p.Direction.Y)
	return true
}

// Detect compares the current beliefs about visible cells with the new
// observation.
func Detect(g *core.Grid, obs *protocol.Observation) (typeShifted, energyShifted bool) {
	for c := range g.All() {
		if !obs.Visible(c.Pos) {
			continue
		}
		if c.Type != core.Unknown && c.Type != obs.TileAt(c.Pos) {
			typeShifted = true
		}
		if c.HasEnergy && c.Energy != obs.EnergyAt(c.Pos) {
			energyShifted = true
		}
		if typeShifted && energyShifted {
			return
		}
	}
	return
}

// InferPeriod applies the cadence rule to the shift history. It decides
// only on a turn whose flag is set.
//
// The threshold expression keeps the exact operator precedence of the rule
// it reproduces: 21%40 binds first, so the test is len(history) < 41.
func InferPeriod(history []bool, periods []int) (int, bool) {
	if len(history) == 0 || !history[len(history)-1] || len(periods) == 0 {
		return 0, false
	}
	if len(history)-21%40 < 20 {
		return periods[0], true
	}
	return periods[len(periods)-1], true
}

// InferDirection tests every candidate drift against the visible cells of
// obs and returns the direction only when exactly one is consistent.
func InferDirection(g *core.Grid, obs *protocol.Observation, candidates [][2]int) (core.Pos, bool) {
	var match []core.Pos
	for _, d := range candidates {
		moved := g.Shift(d[0], d[1])
		if consistent(moved, obs) {
			match = append(match, core.Pos{X: d[0], Y: d[1]})
		}
	}
	if len(match) != 1 {
		return core.Pos{}, false
	}
	return match[0], true
}

func consistent(g *core.Grid, obs *protocol.Observation) bool {
	for c := range g.All() {
		if obs.Visible(c.Pos) && c.Type != core.Unknown && c.Type != obs.TileAt(c.Pos) {
			return false
		}
	}
	return true
}

// Update runs shift detection and parameter inference for one turn, before
// the observation is merged. It returns whether tile energies moved.
func (e *Estimator) Update(g *core.Grid, obs *protocol.Observation) (energyShifted bool) {
	typeShifted, energyShifted := Detect(g, obs)
	g.AppendShift(typeShifted)

	if !e.Params.PeriodFound {
		if period, ok := InferPeriod(g.ShiftHistory(), e.cfg.Game.ObstaclePeriods); ok {
			e.Params.Period, e.Params.PeriodFound = period, true
			e.metrics.ParamConfirmed("period")
			e.log.Info("obstacle period confirmed", "step", obs.Steps, "period", period)
		}
	}

	if !e.Params.DirectionFound && typeShifted {
		if dir, ok := InferDirection(g, obs, e.cfg.Game.ObstacleDirections); ok {
			e.Params.Direction, e.Params.DirectionFound = dir, true
			e.metrics.ParamConfirmed("direction")
			e.log.Info("obstacle direction confirmed", "step", obs.Steps, "direction", dir)
			g.ShiftInPlace(dir.X, dir.Y)
			typeShifted = false
		} else {
			e.log.Warn("obstacle direction ambiguous, forgetting tile types", "step", obs.Steps)
			e.metrics.TypesInvalidated(metrics.ReasonDirectionAmbiguous)
			g.InvalidateTypes()
		}
	}

	if typeShifted && e.Params.Confirmed() {
		e.log.Warn("obstacles moved against confirmed parameters, forgetting tile types",
			"step", obs.Steps, "period", e.Params.Period, "direction", e.Params.Direction)
		e.metrics.TypesInvalidated(metrics.ReasonParamsContradicted)
		g.InvalidateTypes()
	}

	return energyShifted
}
