package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
)

var shopDatasets []string

var shopCmd = &cobra.Command{
	Use:   "shop [<shop.csv>...]",
	Short: "Blueprint acquisition counts per configured item group",
	Long: `Count how many shop rows granted each tracked blueprint. Item groups come
from the item_groups config key.`,
	RunE: runShop,
}

func init() {
	addDatasetFlag(shopCmd, &shopDatasets)
}

func runShop(cmd *cobra.Command, args []string) error {
	d, err := loadInputs(cmd.Context(), model.KindShop, args, shopDatasets)
	if err != nil {
		return err
	}
	printShop(os.Stdout, d)
	return nil
}

func printShop(w io.Writer, d *ingest.Dataset) {
	r := aggregator.BuildShopReport(d.Shop, cfg.ItemGroups)
	fmt.Fprintf(w, "\n=== Shop: %s (%d rows) ===\n\n", d.Name, r.Rows)
	report.PrintCounts(w, "GROUP", r.Groups)
	fmt.Fprintln(w)
	report.PrintItemCounts(w, r.Items)
}
