// Package sim replays recorded observation streams through an agent.
//
// A stream is JSON Lines: one observation object per line, in turn order.
// For every line the replayer writes one line holding the agent's action
// array.
package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/elektrokombinacija/relic-fleet/internal/agent"
	"github.com/elektrokombinacija/relic-fleet/internal/protocol"
)

// maxLine bounds one encoded observation.
const maxLine = 16 << 20

// ReplayConfig configures a replay run.
type ReplayConfig struct {
	// Stop at the first turn the agent rejects instead of emitting an
	// idle turn for it.
	StopOnError bool
	// Log progress every ProgressEvery turns; zero disables it.
	ProgressEvery int
}

// ReplayMetrics collects totals over a replay run.
type ReplayMetrics struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Turns   int `json:"turns"`
	Matches int `json:"matches"`
	Errors  int `json:"errors"`

	TotalPlanningMs float64 `json:"total_planning_ms"`
	MaxPlanningMs   float64 `json:"max_planning_ms"`

	FinalPoints  int  `json:"final_points"`
	RelicsFound  bool `json:"relics_found"`
	RewardsFound bool `json:"rewards_found"`
}

// Replayer feeds observations to an agent.
type Replayer struct {
	mu sync.Mutex

	config  ReplayConfig
	agent   *agent.Agent
	log     *slog.Logger
	metrics ReplayMetrics
}

// NewReplayer creates a replayer around a.
func NewReplayer(a *agent.Agent, config ReplayConfig, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{config: config, agent: a, log: logger}
}

// Run reads observations from in until EOF or ctx is done and writes one
// action line per observation to out.
func (r *Replayer) Run(ctx context.Context, in io.Reader, out io.Writer) (*ReplayMetrics, error) {
	r.mu.Lock()
	r.metrics = ReplayMetrics{StartTime: time.Now()}
	r.mu.Unlock()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	enc := json.NewEncoder(out)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var obs protocol.Observation
		if err := json.Unmarshal(raw, &obs); err != nil {
			return r.finish(), fmt.Errorf("line %d: decode observation: %w", line, err)
		}

		actions, err := r.turn(&obs)
		if err != nil {
			if r.config.StopOnError {
				return r.finish(), fmt.Errorf("line %d: %w", line, err)
			}
			r.log.Error("turn rejected, emitting idle actions", "line", line, "step", obs.Steps, "err", err)
			actions = make([]protocol.ActionRecord, r.agent.Config().Game.MaxUnits)
		}
		if err := enc.Encode(actions); err != nil {
			return r.finish(), fmt.Errorf("line %d: write actions: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return r.finish(), fmt.Errorf("read observations: %w", err)
	}
	return r.finish(), nil
}

func (r *Replayer) turn(obs *protocol.Observation) ([]protocol.ActionRecord, error) {
	start := time.Now()
	actions, err := r.agent.Act(obs)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	r.mu.Lock()
	defer r.mu.Unlock()
	m := &r.metrics
	m.Turns++
	m.TotalPlanningMs += elapsed
	m.MaxPlanningMs = max(m.MaxPlanningMs, elapsed)
	if obs.MatchSteps == 0 {
		m.Matches++
	}
	if err != nil {
		m.Errors++
		return nil, err
	}

	if r.config.ProgressEvery > 0 && m.Turns%r.config.ProgressEvery == 0 {
		r.log.Info("replay progress", "turns", m.Turns, "matches", m.Matches,
			"points", r.agent.Fleet().Points, "errors", m.Errors)
	}
	return actions, nil
}

func (r *Replayer) finish() *ReplayMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.EndTime = time.Now()
	r.metrics.FinalPoints = r.agent.Fleet().Points
	r.metrics.RelicsFound = r.agent.Engine().RelicsFound()
	r.metrics.RewardsFound = r.agent.Engine().RewardsFound()
	out := r.metrics
	return &out
}

// Metrics returns the totals collected so far.
func (r *Replayer) Metrics() ReplayMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// ExportMetrics writes the totals to a JSON file.
func (r *Replayer) ExportMetrics(path string) error {
	metrics := r.Metrics()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
