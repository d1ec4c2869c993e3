package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/schema"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show the default report of a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	d, err := db.Load(prefix, "")
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No dataset found with hash prefix %q\n", prefix)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	return showDataset(os.Stdout, d)
}

// showDataset prints the report matching a dataset's kind with default settings.
func showDataset(w io.Writer, d *ingest.Dataset) error {
	switch d.Kind {
	case model.KindInteractions:
		printKills(w, d, "", cfg.TopRivalries, false)
	case model.KindFeatures:
		return printFeatures(w, d, cfg.Metric(), nil)
	case model.KindDeaths:
		if err := printDeaths(w, d, aggregator.DeathFilter{}); err != nil && !errors.Is(err, schema.ErrEmptySelection) {
			return err
		}
	case model.KindShop:
		printShop(w, d)
	default:
		return fmt.Errorf("dataset %s has unknown kind %q", report.ShortHash(d.Hash), d.Kind)
	}
	return nil
}
