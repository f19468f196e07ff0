package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationfinder/simulation"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List the charging stations of a scenario",
	RunE:  listStations,
}

func init() {
	rootCmd.AddCommand(stationsCmd)
}

func listStations(cmd *cobra.Command, _ []string) error {
	if scenarioPath == "" {
		return fmt.Errorf("--scenario is required")
	}
	sc, err := simulation.LoadScenario(scenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tX\tY\tPLUG\tSLOTS\tMAX_KW"); err != nil {
		return err
	}
	for _, st := range sc.Stations {
		if _, err := fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%s\t%d\t%.0f\n",
			st.ID, st.Position.X, st.Position.Y, st.Interface.Plug, st.Capacity(), st.MaxPowerKW()); err != nil {
			return err
		}
	}
	return w.Flush()
}
