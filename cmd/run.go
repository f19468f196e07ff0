package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationfinder/app"
	"github.com/kilianp07/stationfinder/infra/logger"
	"github.com/kilianp07/stationfinder/pkg/export"
	"github.com/kilianp07/stationfinder/simulation"
)

var (
	maxTicks   int64
	summaryOut string
	format     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and write the trip summaries",
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().Int64Var(&maxTicks, "ticks", 0, "stop after this many ticks (overrides simulation.max_ticks)")
	runCmd.Flags().StringVar(&summaryOut, "summary-out", "", "write trip summaries to this file instead of stdout")
	runCmd.Flags().StringVar(&format, "format", string(export.FormatJSON), "summary format: json or csv")
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scenarioPath == "" {
		return fmt.Errorf("--scenario is required")
	}
	f := export.Format(format)
	if f != export.FormatJSON && f != export.FormatCSV {
		return fmt.Errorf("unsupported format %q", format)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ticks") {
		cfg.Simulation.MaxTicks = maxTicks
	}
	sc, err := simulation.LoadScenario(scenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	recs, err := svc.Run(ctx, sc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if summaryOut != "" {
		file, err := os.Create(summaryOut)
		if err != nil {
			return fmt.Errorf("summary output: %w", err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}
	return export.Write(out, f, recs)
}
