package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/cluster"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
)

var (
	featuresMetric    string
	featuresCluster   string
	featuresK         int
	featuresEps       float64
	featuresMinPoints int
	featuresSeed      int64
	featuresDatasets  []string
)

var featuresCmd = &cobra.Command{
	Use:   "features [<features.csv>...]",
	Short: "Pivot a feature log into one row per player, optionally clustered",
	Long: `Pivot a long-form (key.0, key.1, value) activity export into a matrix with
one row per player and one column per event category. The configured
required categories are always present, zero-filled.

With --cluster the standardized rows are grouped by k-means or DBSCAN and
the label is printed as an extra column.`,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringVar(&featuresMetric, "metric", "", "combine repeated values: sum, count, mean (default: config feature_metric)")
	featuresCmd.Flags().StringVar(&featuresCluster, "cluster", "", "clustering method: kmeans or dbscan")
	featuresCmd.Flags().IntVar(&featuresK, "k", cluster.DefaultK, "k-means cluster count")
	featuresCmd.Flags().Float64Var(&featuresEps, "eps", cluster.DefaultEps, "DBSCAN neighbourhood radius (standardized units)")
	featuresCmd.Flags().IntVar(&featuresMinPoints, "min-points", cluster.DefaultMinPoints, "DBSCAN core point threshold")
	featuresCmd.Flags().Int64Var(&featuresSeed, "seed", 0, "k-means seed (default: config cluster_seed)")
	addDatasetFlag(featuresCmd, &featuresDatasets)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	metric := cfg.Metric()
	if featuresMetric != "" {
		m, err := aggregator.ParseMetric(featuresMetric)
		if err != nil {
			return err
		}
		metric = m
	}
	seed := cfg.ClusterSeed
	if cmd.Flags().Changed("seed") {
		seed = featuresSeed
	}
	c, err := cluster.New(cluster.Params{
		Method:    featuresCluster,
		K:         featuresK,
		Seed:      seed,
		Eps:       featuresEps,
		MinPoints: featuresMinPoints,
	})
	if err != nil {
		return err
	}

	d, err := loadInputs(cmd.Context(), model.KindFeatures, args, featuresDatasets)
	if err != nil {
		return err
	}
	return printFeatures(os.Stdout, d, metric, c)
}

func printFeatures(w io.Writer, d *ingest.Dataset, metric aggregator.Metric, c cluster.Clusterer) error {
	p := aggregator.FeaturePipeline{Required: cfg.RequiredCategories, Metric: metric}
	r, err := p.Report(d.Features, c)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n=== Features: %s (%s, %d players) ===\n\n", d.Name, r.Metric, len(r.Rows))
	report.PrintFeatureMatrix(w, r.Rows, r.Columns)
	if len(r.Ignored) > 0 {
		fmt.Fprintf(w, "Ignored categories (not in required_categories): %s\n", strings.Join(r.Ignored, ", "))
	}
	if r.Clusterer != "" {
		fmt.Fprintf(w, "\n--- Clusters: %s ---\n\n", r.Clusterer)
		report.PrintClusterSizes(w, r.ClusterSizes)
	}
	return nil
}
