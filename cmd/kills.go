package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
)

var (
	killsServer   string
	killsTop      int
	killsDatasets []string
	killsMutual   bool
)

var killsCmd = &cobra.Command{
	Use:   "kills [<kills.csv>...]",
	Short: "Kill log report: summary, top killers, weapons, graph and rivalries",
	Long: `Aggregate one or more kill logs (CSV files and/or stored datasets) into
directed kill counts and print the summary, top killers, top weapons, kill
graph degrees and the strongest rivalries.

Player ids are replaced with display names from the identity map before
aggregation. --mutual hides rivalries where only one player scored.`,
	RunE: runKills,
}

func init() {
	killsCmd.Flags().StringVar(&killsServer, "server", "", "only count kills on this server (default: all)")
	killsCmd.Flags().IntVar(&killsTop, "top", 0, "rivalries to show (default: config top_rivalries)")
	killsCmd.Flags().BoolVar(&killsMutual, "mutual", false, "only show rivalries where both players killed each other")
	addDatasetFlag(killsCmd, &killsDatasets)
}

func runKills(cmd *cobra.Command, args []string) error {
	d, err := loadInputs(cmd.Context(), model.KindInteractions, args, killsDatasets)
	if err != nil {
		return err
	}
	top := cfg.TopRivalries
	if cmd.Flags().Changed("top") {
		top = killsTop
	}
	printKills(os.Stdout, d, killsServer, top, killsMutual)
	return nil
}

func printKills(w io.Writer, d *ingest.Dataset, server string, top int, mutual bool) {
	p := cfg.Pipeline(ids, server)
	p.TopRivalries = top
	p.MutualOnly = mutual

	start := time.Now()
	r := p.Run(d.Interactions)
	logger.Debugw("kills pipeline", "events", len(d.Interactions), "edges", len(r.Edges), "took", time.Since(start))

	fmt.Fprintf(w, "\n=== Kills: %s ===\n", d.Name)
	report.PrintInteractionReport(w, r)
}
