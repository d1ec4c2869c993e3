package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/schema"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

// maxParallelLoads bounds concurrent CSV decoding.
const maxParallelLoads = 4

// addDatasetFlag registers the --dataset flag shared by the report commands.
func addDatasetFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringSliceVar(target, "dataset", nil, "stored dataset hash prefix (repeatable)")
}

// loadInputs decodes CSV files and stored datasets of one kind, in parallel,
// and merges them in argument order. Files failing schema validation are
// reported and skipped.
func loadInputs(ctx context.Context, kind string, files, prefixes []string) (*ingest.Dataset, error) {
	if len(files)+len(prefixes) == 0 {
		return nil, fmt.Errorf("no input: pass CSV files or --dataset <hash-prefix>")
	}

	var db *storage.DB
	if len(prefixes) > 0 {
		var err error
		if db, err = storage.Open(dbPath); err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		defer db.Close()
	}

	parts := make([]*ingest.Dataset, len(files)+len(prefixes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := decodeFile(path, kind)
			if errors.Is(err, schema.ErrSchema) {
				cWarn.Fprintf(os.Stderr, "skipping %s: %v\n", filepath.Base(path), err)
				return nil
			}
			if err != nil {
				return err
			}
			parts[i] = d
			return nil
		})
	}
	for j, prefix := range prefixes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := db.Load(prefix, kind)
			if err != nil {
				return fmt.Errorf("load dataset %s: %w", prefix, err)
			}
			parts[len(files)+j] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := parts[:0]
	for _, p := range parts {
		if p != nil {
			loaded = append(loaded, p)
			logger.Debugw("input loaded", "name", p.Name, "kind", p.Kind, "rows", p.Len())
		}
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no usable %s input: %w", kind, schema.ErrSchema)
	}
	return ingest.Concat(kind, loaded...)
}

// decodeFile reads and decodes one CSV file as kind.
func decodeFile(path, kind string) (*ingest.Dataset, error) {
	t, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := ingest.Decode(t, kind)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.Name, err)
	}
	return d, nil
}

// openStore opens the dataset store, creating its directory on first use.
func openStore() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
