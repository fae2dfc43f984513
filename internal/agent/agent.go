// Package agent runs the per-turn decision pipeline: an observation goes
// in, one action per unit slot comes out.
package agent

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/core"
	"github.com/elektrokombinacija/relic-fleet/internal/fleet"
	"github.com/elektrokombinacija/relic-fleet/internal/infer"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
	"github.com/elektrokombinacija/relic-fleet/internal/record"
	"github.com/elektrokombinacija/relic-fleet/internal/task"
)

// Recorder receives one row per planned turn.
type Recorder interface {
	Write(row record.TurnRow) error
}

// Snapshot is a copy of the agent's beliefs taken at the start of a match.
type Snapshot struct {
	ID    uuid.UUID
	Match int
	Step  int
	Grid  *core.Grid
	Fleet *fleet.Fleet
	Opp   *fleet.Fleet
}

// Agent plays one team.
type Agent struct {
	cfg      *config.Config
	team     int
	log      *slog.Logger
	metrics  *metrics.Metrics
	recorder Recorder

	engine    *infer.Engine
	fleet     *fleet.Fleet
	opp       *fleet.Fleet
	scheduler *task.Scheduler

	step      int
	matchStep int
	match     int
	started   bool
	snapshot  *Snapshot
}

// New creates an agent for team (0 or 1). logger, m and rec may be nil.
func New(cfg *config.Config, team int, logger *slog.Logger, m *metrics.Metrics, rec Recorder) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("team", team)
	return &Agent{
		cfg:       cfg,
		team:      team,
		log:       logger,
		metrics:   m,
		recorder:  rec,
		engine:    infer.NewEngine(cfg, team, logger, m),
		fleet:     fleet.New(team, cfg),
		opp:       fleet.New(1-team, cfg),
		scheduler: task.NewScheduler(cfg, logger, m),
	}
}

func (a *Agent) Grid() *core.Grid               { return a.engine.Grid }
func (a *Agent) Fleet() *fleet.Fleet            { return a.fleet }
func (a *Agent) Opponent() *fleet.Fleet         { return a.opp }
func (a *Agent) Engine() *infer.Engine          { return a.engine }
func (a *Agent) Snapshot() *Snapshot            { return a.snapshot }
func (a *Agent) Match() int                     { return a.match }
func (a *Agent) Config() *config.Config         { return a.cfg }
func (a *Agent) Scheduler() *task.Scheduler     { return a.scheduler }
func (a *Agent) SetScheduler(s *task.Scheduler) { a.scheduler = s }

// Act folds obs into the agent's beliefs and returns the next action of
// every unit slot. An error means the map model was contradicted; the turn
// is aborted and the caller should treat the agent as broken.
func (a *Agent) Act(obs *protocol.Observation) ([]protocol.ActionRecord, error) {
	start := time.Now()
	a.advance(obs)

	if obs.MatchSteps == 0 {
		a.fleet.Clear()
		a.opp.Clear()
		a.engine.Grid.ClearVisibility()
		a.snapshot = &Snapshot{
			ID:    uuid.New(),
			Match: a.match,
			Step:  a.step,
			Grid:  a.engine.Grid.Clone(),
			Fleet: a.fleet.Clone(),
			Opp:   a.opp.Clone(),
		}
		a.log.Info("match started", "match", a.match, "step", a.step, "snapshot", a.snapshot.ID)
		return a.fleet.Actions(), nil
	}

	reward := a.fleet.Update(obs)
	a.opp.Update(obs)
	if err := a.engine.Update(obs, reward, true); err != nil {
		return nil, fmt.Errorf("step %d: %w", a.step, err)
	}

	size := a.cfg.Game.SpaceSize
	if err := a.engine.ApplyExpectedVisibility(a.fleet.ExpectedSensorMask(size, a.cfg.Game.UnitSensorRange)); err != nil {
		return nil, fmt.Errorf("step %d expected visibility: %w", a.step, err)
	}

	turn := task.NewTurn(a.cfg, a.engine.Grid, a.fleet,
		a.engine.RelicsFound(), a.engine.RewardsFound(), a.log)
	a.scheduler.Plan(turn)
	a.fleet.CommitPlans()

	actions := a.fleet.Actions()
	a.record(reward, actions, time.Since(start))
	a.metrics.ObserveTurn(start)
	return actions, nil
}

// advance moves the step counters forward and checks them against obs.
// The observation wins on disagreement.
func (a *Agent) advance(obs *protocol.Observation) {
	if a.started {
		a.step++
		a.matchStep++
		if a.matchStep > a.cfg.Game.MaxStepsInMatch {
			a.matchStep = 0
		}
	}
	if a.started && (obs.Steps != a.step || obs.MatchSteps != a.matchStep) {
		a.log.Warn("step counters out of sync",
			"want_step", a.step, "got_step", obs.Steps,
			"want_match_step", a.matchStep, "got_match_step", obs.MatchSteps)
	}
	if obs.MatchSteps == 0 && obs.Steps > 0 {
		a.match++
	}
	a.step, a.matchStep, a.started = obs.Steps, obs.MatchSteps, true
}

func (a *Agent) record(reward int, actions []protocol.ActionRecord, elapsed time.Duration) {
	if a.recorder == nil {
		return
	}
	g := a.engine.Grid
	params := a.engine.Estimator.Params
	history := g.ShiftHistory()

	row := record.TurnRow{
		Match:        int32(a.match),
		Step:         int32(a.step),
		MatchStep:    int32(a.matchStep),
		Points:       int32(a.fleet.Points),
		Reward:       int32(reward),
		Units:        int32(a.fleet.Len()),
		RelicCells:   int32(len(g.RelicCells())),
		RewardCells:  int32(len(g.RewardCells())),
		RelicsFound:  a.engine.RelicsFound(),
		RewardsFound: a.engine.RewardsFound(),
		Shifted:      len(history) > 0 && history[len(history)-1],
		PlanMicros:   elapsed.Microseconds(),
	}
	if params.PeriodFound {
		row.Period = int32(params.Period)
	}
	if params.DirectionFound {
		row.DirectionX, row.DirectionY = int32(params.Direction.X), int32(params.Direction.Y)
	}
	for _, u := range a.fleet.Units() {
		row.UnitX = append(row.UnitX, int32(u.Pos.X))
		row.UnitY = append(row.UnitY, int32(u.Pos.Y))
		row.UnitEnergy = append(row.UnitEnergy, int32(u.Energy))
		if u.Task == nil {
			continue
		}
		switch u.Task.Kind() {
		case task.KindHarvest:
			row.Harvesters++
		case task.KindExplore:
			row.Explorers++
		case task.KindHeal:
			row.Healers++
		}
	}
	for _, act := range actions {
		row.ActionTypes = append(row.ActionTypes, int32(act[0]))
	}

	if err := a.recorder.Write(row); err != nil {
		a.log.Error("turn record dropped", "step", a.step, "err", err)
	}
}
