package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the metrics database",
	Long: `Run an arbitrary SQL query against the metrics database and print results as a table.

Schema overview:
  datasets(hash, kind, name, rows, imported_at)
  interaction_events(dataset_hash, seq, actor_id, target_id, server_id, item_id)
  feature_events(dataset_hash, seq, subject, category, value)
  death_events(dataset_hash, seq, loc_x, loc_y, loc_z, cause, carriage_id,
    server_id, time_ms)
  shop_events(dataset_hash, seq, distinct_id, knowledge, time_ms)

knowledge is a JSON array. time_ms is Unix milliseconds, NULL when absent.
Example: SELECT actor_id, COUNT(*) FROM interaction_events GROUP BY 1 ORDER BY 2 DESC`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	return nil
}
