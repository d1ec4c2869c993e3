package aggregator

import (
	"fmt"

	"github.com/pable/go-telemetry-metrics/internal/cluster"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// FeatureReport is the pivoted activity matrix, optionally clustered.
type FeatureReport struct {
	Metric       string             `json:"metric"`
	Columns      []string           `json:"columns"`
	Rows         []model.FeatureRow `json:"rows"`
	Ignored      []string           `json:"ignored_categories,omitempty"`
	Clusterer    string             `json:"clusterer,omitempty"`
	ClusterSizes []model.CountEntry `json:"cluster_sizes,omitempty"`
}

// Report pivots events and, when c is non-nil, labels each row with the
// cluster of its standardized feature vector. Vectors always have one
// dimension per schema column; categories outside the schema are listed in
// Ignored and never clustered.
func (p FeaturePipeline) Report(events []model.FeatureEvent, c cluster.Clusterer) (FeatureReport, error) {
	rows := p.Run(events)
	cols := p.Columns()
	r := FeatureReport{
		Metric:  p.Metric.String(),
		Columns: cols,
		Rows:    rows,
		Ignored: ExtraCategories(events, p.required()),
	}
	if c == nil || len(rows) == 0 {
		return r, nil
	}

	labels, err := c.Fit(cluster.Standardize(Matrix(rows, cols)))
	if err != nil {
		return r, fmt.Errorf("cluster features: %w", err)
	}
	if err := ApplyLabels(rows, labels); err != nil {
		return r, err
	}
	r.Clusterer = c.Name()
	r.ClusterSizes = LabelSizes(rows)
	return r, nil
}

// DeathReport summarises a filtered death-location log.
type DeathReport struct {
	Options DeathOptions         `json:"options"`
	Total   int                  `json:"total"`
	Causes  []model.CountEntry   `json:"causes"`
	Minutes []model.MinuteBucket `json:"minutes"`
	Points  []model.DeathEvent   `json:"-"`
}

// Empty reports whether the filter selected no deaths.
func (r DeathReport) Empty() bool { return r.Total == 0 }

// BuildDeathReport filters events and computes the cause and per-minute
// breakdowns. Options always describe the unfiltered log.
func BuildDeathReport(events []model.DeathEvent, f DeathFilter) DeathReport {
	filtered := FilterDeaths(events, f)
	return DeathReport{
		Options: Options(events),
		Total:   len(filtered),
		Causes:  CauseDistribution(filtered),
		Minutes: DeathsByMinute(filtered),
		Points:  filtered,
	}
}

// ShopReport holds blueprint acquisition counts.
type ShopReport struct {
	Rows   int                `json:"rows"`
	Items  []model.ItemCount  `json:"items"`
	Groups []model.CountEntry `json:"groups"`
}

// BuildShopReport counts acquisitions of the configured item groups.
func BuildShopReport(events []model.ShopEvent, groups []model.ItemGroup) ShopReport {
	items := CountAcquisitions(events, groups)
	return ShopReport{Rows: len(events), Items: items, Groups: GroupTotals(items)}
}
