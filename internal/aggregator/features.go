package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Metric selects how values landing in the same (subject, category) cell
// are combined.
type Metric int

const (
	// MetricSum adds values.
	MetricSum Metric = iota
	// MetricCount counts rows and ignores values.
	MetricCount
	// MetricMean averages values.
	MetricMean
)

func (m Metric) String() string {
	switch m {
	case MetricCount:
		return "count"
	case MetricMean:
		return "mean"
	default:
		return "sum"
	}
}

// ParseMetric accepts sum, count or mean (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sum":
		return MetricSum, nil
	case "mean", "avg":
		return MetricMean, nil
	case "count":
		return MetricCount, nil
	default:
		return MetricSum, fmt.Errorf("unknown metric %q (want sum, count or mean)", s)
	}
}

// DefaultCategories are the columns the 3D activity map plots.
var DefaultCategories = []string{"syncs_extracted", "weapon_used", "building_placed"}

// FeatureColumns returns the matrix schema for required: its distinct
// non-empty categories, sorted.
func FeatureColumns(required []string) []string {
	set := make(map[string]struct{}, len(required))
	for _, c := range required {
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// BuildFeatureMatrix pivots long-form events into one row per subject. The
// column set is exactly FeatureColumns(required): absent cells are 0 and
// categories outside the schema are dropped, so the vector dimension never
// depends on the upload. Every subject seen in events gets a row, sorted by
// subject id.
func BuildFeatureMatrix(events []model.FeatureEvent, required []string, metric Metric) []model.FeatureRow {
	type cellKey struct{ subject, category string }
	type accum struct {
		sum float64
		n   int
	}
	columns := FeatureColumns(required)
	inSchema := make(map[string]bool, len(columns))
	for _, c := range columns {
		inSchema[c] = true
	}
	cells := make(map[cellKey]*accum)
	subjects := make(map[string]struct{})

	for _, e := range events {
		if e.Subject == "" || e.Category == "" {
			continue
		}
		subjects[e.Subject] = struct{}{}
		if !inSchema[e.Category] {
			continue
		}
		k := cellKey{e.Subject, e.Category}
		if cells[k] == nil {
			cells[k] = &accum{}
		}
		cells[k].sum += e.Value
		cells[k].n++
	}

	ids := sortedKeys(subjects)
	out := make([]model.FeatureRow, 0, len(ids))
	for _, id := range ids {
		row := model.FeatureRow{SubjectID: id, Counts: make(map[string]float64, len(columns))}
		for _, c := range columns {
			a := cells[cellKey{id, c}]
			if a == nil {
				row.Counts[c] = 0
				continue
			}
			switch metric {
			case MetricSum:
				row.Counts[c] = a.sum
			case MetricCount:
				row.Counts[c] = float64(a.n)
			default:
				row.Counts[c] = a.sum / float64(a.n)
			}
		}
		out = append(out, row)
	}
	return out
}

// ExtraCategories lists the observed categories outside the schema of
// required, sorted. BuildFeatureMatrix drops them.
func ExtraCategories(events []model.FeatureEvent, required []string) []string {
	known := make(map[string]bool, len(required))
	for _, c := range required {
		known[c] = true
	}
	extra := make(map[string]struct{})
	for _, e := range events {
		if e.Subject != "" && e.Category != "" && !known[e.Category] {
			extra[e.Category] = struct{}{}
		}
	}
	return sortedKeys(extra)
}

// Columns returns the sorted union of categories across rows.
func Columns(rows []model.FeatureRow) []string {
	set := make(map[string]struct{})
	for _, r := range rows {
		for c := range r.Counts {
			set[c] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Matrix lays rows out as dense vectors in the given column order.
func Matrix(rows []model.FeatureRow, columns []string) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(columns))
		for j, c := range columns {
			vec[j] = r.Counts[c]
		}
		out[i] = vec
	}
	return out
}

// ApplyLabels attaches one cluster label per row, in row order.
func ApplyLabels(rows []model.FeatureRow, labels []int) error {
	if len(labels) != len(rows) {
		return fmt.Errorf("apply labels: %d labels for %d rows", len(labels), len(rows))
	}
	for i := range rows {
		l := labels[i]
		rows[i].Label = &l
	}
	return nil
}

// LabelSizes counts rows per cluster label, ordered by label.
func LabelSizes(rows []model.FeatureRow) []model.CountEntry {
	counts := make(map[int]int)
	for _, r := range rows {
		if r.Label != nil {
			counts[*r.Label]++
		}
	}
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	out := make([]model.CountEntry, 0, len(labels))
	for _, l := range labels {
		out = append(out, model.CountEntry{Key: fmt.Sprintf("%d", l), Count: counts[l]})
	}
	return out
}
