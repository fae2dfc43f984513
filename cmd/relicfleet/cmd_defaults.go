package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/relic-fleet/internal/config"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(config.Default()); err != nil {
			return err
		}
		return enc.Close()
	},
}
