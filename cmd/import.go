package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/schema"
)

var (
	importKind string
	importName string
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv> [<file.csv>...]",
	Short: "Validate CSV exports and store them in the database",
	Long: `Validate one or more CSV exports against the schema of --kind and store
them keyed by the SHA-256 of their contents. Importing the same file twice
reuses the stored copy.

Kinds: interactions, features, deaths, shop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importKind, "kind", "k", "", "dataset kind: interactions, features, deaths, shop")
	importCmd.Flags().StringVar(&importName, "name", "", "display name (single file only; default: file name)")
	_ = importCmd.MarkFlagRequired("kind")
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, ok := schema.ForKind(importKind); !ok {
		return fmt.Errorf("unknown kind %q (want one of %v)", importKind, model.Kinds)
	}
	if importName != "" && len(args) > 1 {
		return fmt.Errorf("--name applies to a single file, got %d", len(args))
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var imported []model.Dataset
	var failed int
	for _, path := range args {
		d, err := decodeFile(path, importKind)
		if errors.Is(err, schema.ErrSchema) {
			cError.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if err != nil {
			return err
		}
		if importName != "" {
			d.Name = importName
		}

		meta, cached, err := db.Import(d)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if cached {
			fmt.Fprintf(os.Stdout, "Dataset %s already stored, using cached copy.\n", report.ShortHash(meta.Hash))
		} else {
			logger.Infow("dataset imported", "hash", meta.Hash, "kind", meta.Kind, "rows", meta.Rows)
		}
		imported = append(imported, meta)
	}

	if len(imported) > 0 {
		fmt.Fprintln(os.Stdout)
		report.PrintDatasets(os.Stdout, imported)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}
