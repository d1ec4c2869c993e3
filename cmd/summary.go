package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about everything stored in the database:
datasets and rows per kind, plus kill counts per server and the most
frequent killer/victim pairs across every stored kill log.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	totals, err := db.Overview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	var datasets int
	for _, t := range totals {
		datasets += t.Datasets
	}
	if datasets == 0 {
		fmt.Fprintln(os.Stdout, "No datasets stored yet. Run 'tmetrics import --kind <kind> <file.csv>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	kt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	kt.Header("KIND", "DATASETS", "ROWS")
	for _, t := range totals {
		kt.Append(t.Kind, fmt.Sprintf("%d", t.Datasets), fmt.Sprintf("%d", t.Rows))
	}
	kt.Render()

	// Kill-log sections only when kill logs are stored.
	list, err := db.ListDatasets()
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	var hashes []string
	for _, d := range list {
		if d.Kind == model.KindInteractions {
			hashes = append(hashes, d.Hash)
		}
	}
	if len(hashes) == 0 {
		return nil
	}

	servers, err := db.ServerKillCounts(hashes)
	if err != nil {
		return fmt.Errorf("get server kills: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Kills per Server ---\n\n")
	report.PrintCounts(os.Stdout, "SERVER", servers)

	pairs, err := db.PairCounts(hashes)
	if err != nil {
		return fmt.Errorf("get kill pairs: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Top Rivalries (raw ids, all kill logs) ---\n\n")
	report.PrintRivalries(os.Stdout, aggregator.TopRivalries(pairs, cfg.TopRivalries))
	return nil
}
