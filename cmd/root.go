package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationfinder/config"
)

var (
	cfgPath      string
	scenarioPath string
)

var rootCmd = &cobra.Command{
	Use:           "stationfinder",
	Short:         "Energy-aware charging station routing for traffic simulations",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
