package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
)

var (
	playerServer   string
	playerDatasets []string
)

var playerCmd = &cobra.Command{
	Use:   "player <name> [<kills.csv>...]",
	Short: "Per-player kill breakdown: victims, nemeses and mutual rivalries",
	Long: `Show who a player killed, who killed them and every mutual kill exchange,
computed from the same aggregated kill counts as the rivalry table.

<name> is the display name after identity mapping, or the raw id when the
player has no mapping.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayer,
}

func init() {
	playerCmd.Flags().StringVar(&playerServer, "server", "", "only count kills on this server (default: all)")
	addDatasetFlag(playerCmd, &playerDatasets)
}

func runPlayer(cmd *cobra.Command, args []string) error {
	d, err := loadInputs(cmd.Context(), model.KindInteractions, args[1:], playerDatasets)
	if err != nil {
		return err
	}
	return printPlayer(os.Stdout, d, args[0], playerServer)
}

func printPlayer(w io.Writer, d *ingest.Dataset, name, server string) error {
	r := cfg.Pipeline(ids, server).Run(d.Interactions)
	if !slices.Contains(r.Players, name) {
		return fmt.Errorf("unknown player %q (%d players in %s)", name, len(r.Players), d.Name)
	}
	report.PrintDrilldown(w, r.Player(name))
	return nil
}
