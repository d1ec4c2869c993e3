package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/schema"
)

var (
	deathsCause    string
	deathsCarriage string
	deathsServer   string
	deathsDatasets []string
)

var deathsCmd = &cobra.Command{
	Use:   "deaths [<deaths.csv>...]",
	Short: "Death-location report: cause distribution and deaths per minute",
	Long: `Filter a death-location export by cause, carriage and server, then print
the cause distribution and the number of deaths per minute. An empty filter
value or "All" matches everything.`,
	RunE: runDeaths,
}

func init() {
	deathsCmd.Flags().StringVar(&deathsCause, "cause", "", "only this cause of death")
	deathsCmd.Flags().StringVar(&deathsCarriage, "carriage", "", "only this carriage id")
	deathsCmd.Flags().StringVar(&deathsServer, "server", "", "only this server id")
	addDatasetFlag(deathsCmd, &deathsDatasets)
}

func runDeaths(cmd *cobra.Command, args []string) error {
	d, err := loadInputs(cmd.Context(), model.KindDeaths, args, deathsDatasets)
	if err != nil {
		return err
	}
	f := aggregator.DeathFilter{Cause: deathsCause, CarriageID: deathsCarriage, ServerID: deathsServer}
	if err := printDeaths(os.Stdout, d, f); err != nil {
		cWarn.Fprintln(os.Stderr, err)
	}
	return nil
}

// printDeaths returns an ErrEmptySelection error after printing the options
// when the filter matches nothing.
func printDeaths(w io.Writer, d *ingest.Dataset, f aggregator.DeathFilter) error {
	r := aggregator.BuildDeathReport(d.Deaths, f)

	fmt.Fprintf(w, "\n=== Deaths: %s ===\n", d.Name)
	fmt.Fprintf(w, "Causes: %s\n", joinOrDash(r.Options.Causes))
	fmt.Fprintf(w, "Carriages: %s\n", joinOrDash(r.Options.Carriages))
	fmt.Fprintf(w, "Servers: %s\n", joinOrDash(r.Options.Servers))
	if r.Empty() {
		return fmt.Errorf("cause=%q carriage=%q server=%q: %w", f.Cause, f.CarriageID, f.ServerID, schema.ErrEmptySelection)
	}

	fmt.Fprintf(w, "\nDeaths matched: %d of %d\n\n", r.Total, len(d.Deaths))
	report.PrintCounts(w, "CAUSE", r.Causes)
	fmt.Fprintln(w)
	report.PrintMinuteBuckets(w, r.Minutes)
	return nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
