package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <hash-prefix>",
	Short: "Export a stored dataset's report as JSON",
	Long: `Run the default report for a stored dataset and write it as JSON, in the
same shape the HTTP service returns.

Example:
  tmetrics export 3fa9c1 --out kills-report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	d, err := db.Load(args[0], "")
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	payload, err := buildExport(d)
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s report to %s\n", d.Kind, exportOut)
	}
	return nil
}

// exportDoc wraps a report with the dataset it was computed from.
type exportDoc struct {
	Dataset model.Dataset `json:"dataset"`
	Report  any           `json:"report"`
}

func buildExport(d *ingest.Dataset) (exportDoc, error) {
	doc := exportDoc{Dataset: d.Meta()}
	switch d.Kind {
	case model.KindInteractions:
		doc.Report = cfg.Pipeline(ids, "").Run(d.Interactions)
	case model.KindFeatures:
		r, err := aggregator.FeaturePipeline{Required: cfg.RequiredCategories, Metric: cfg.Metric()}.Report(d.Features, nil)
		if err != nil {
			return doc, err
		}
		doc.Report = r
	case model.KindDeaths:
		doc.Report = aggregator.BuildDeathReport(d.Deaths, aggregator.DeathFilter{})
	case model.KindShop:
		doc.Report = aggregator.BuildShopReport(d.Shop, cfg.ItemGroups)
	default:
		return doc, fmt.Errorf("unknown dataset kind %q", d.Kind)
	}
	return doc, nil
}
