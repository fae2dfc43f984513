package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/relic-fleet/internal/agent"
	"github.com/elektrokombinacija/relic-fleet/internal/config"
	"github.com/elektrokombinacija/relic-fleet/internal/metrics"
	"github.com/elektrokombinacija/relic-fleet/internal/record"
	"github.com/elektrokombinacija/relic-fleet/internal/sim"
)

var (
	obsPath     string
	configPath  string
	envPath     string
	recordPath  string
	metricsPath string
	promPath    string
	team        int
	stopOnError bool
	progress    int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed a JSON Lines observation log through the agent",
	Long: `Reads one observation per line from --obs ("-" for stdin) and writes
one JSON action array per line to stdout.`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&obsPath, "obs", "", `observation log, "-" for stdin`)
	f.StringVar(&configPath, "config", "", "YAML config applied over the defaults")
	f.StringVar(&envPath, "env", "", "JSON file with the per-game values revealed by the host")
	f.StringVar(&recordPath, "record", "", "write one parquet row per turn to this file")
	f.StringVar(&metricsPath, "metrics-out", "", "write replay totals as JSON to this file")
	f.StringVar(&promPath, "prom-out", "", "write the agent's Prometheus metrics in text format to this file")
	f.IntVar(&team, "team", 0, "team the agent plays (0 or 1)")
	f.BoolVar(&stopOnError, "stop-on-error", false, "abort on the first rejected turn")
	f.IntVar(&progress, "progress", 0, "log progress every N turns")
	_ = replayCmd.MarkFlagRequired("obs")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if team != 0 && team != 1 {
		return fmt.Errorf("--team must be 0 or 1, got %d", team)
	}
	cfg, err := loadConfig(configPath, envPath)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, obsPath)
	if err != nil {
		return err
	}
	defer closeIn()

	session := uuid.NewString()
	logger := slog.Default().With("session", session)

	var rec agent.Recorder
	if recordPath != "" {
		w, err := record.NewWriter(recordPath, session)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("closing turn record", "path", recordPath, "err", err)
				return
			}
			logger.Info("turn record written", "path", recordPath, "rows", w.Rows())
		}()
		rec = w
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := agent.New(&cfg, team, logger, m, rec)
	r := sim.NewReplayer(a, sim.ReplayConfig{StopOnError: stopOnError, ProgressEvery: progress}, logger)

	totals, err := r.Run(cmd.Context(), in, cmd.OutOrStdout())
	if totals != nil {
		logger.Info("replay finished", "turns", totals.Turns, "matches", totals.Matches,
			"errors", totals.Errors, "points", totals.FinalPoints)
	}
	if metricsPath != "" {
		if err := r.ExportMetrics(metricsPath); err != nil {
			logger.Error("exporting replay metrics", "path", metricsPath, "err", err)
		}
	}
	if promPath != "" {
		if err := prometheus.WriteToTextfile(promPath, reg); err != nil {
			logger.Error("writing prometheus metrics", "path", promPath, "err", err)
		}
	}
	return err
}

func loadConfig(path, env string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if env == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(env)
	if err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	var ec config.EnvConfig
	if err := json.Unmarshal(data, &ec); err != nil {
		return cfg, fmt.Errorf("parse env %s: %w", env, err)
	}
	cfg = cfg.WithEnv(ec)
	return cfg, cfg.Validate()
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open observations: %w", err)
	}
	return f, func() { f.Close() }, nil
}
