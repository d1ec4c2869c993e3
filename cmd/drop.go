package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

var dropForce bool

// dropCmd deletes one dataset or the whole metrics database file.
var dropCmd = &cobra.Command{
	Use:   "drop [<hash-prefix>]",
	Short: "Delete a stored dataset, or the whole metrics database",
	Long: `With a hash prefix, delete that dataset and its rows. Without one,
permanently delete the SQLite metrics database; re-import your CSVs
afterwards to rebuild.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return dropDataset(args[0])
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	// WAL side files.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropDataset(prefix string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	d, err := db.ResolveDataset(prefix, "")
	if err != nil {
		return err
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will delete dataset %s (%s, %d rows).\n", report.ShortHash(d.Hash), d.Name, d.Rows)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := db.DeleteDataset(d.Hash); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete dataset: %w", err)
	}
	logger.Infow("dataset deleted", "hash", d.Hash, "kind", d.Kind)
	fmt.Fprintf(os.Stdout, "Deleted dataset %s\n", report.ShortHash(d.Hash))
	return nil
}
