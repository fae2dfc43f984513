// Command relicfleet replays observation logs through the fleet agent.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:           "relicfleet",
		Short:         "Decision core of a grid-game fleet agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			// stdout carries actions; logs go to stderr
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(replayCmd, defaultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("relicfleet failed", "err", err)
		os.Exit(1)
	}
}
