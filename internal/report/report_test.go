package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

func TestPrintInteractionReport(t *testing.T) {
	events := []model.InteractionEvent{
		{ActorID: "Alice", TargetID: "Bob", ServerID: "s1", ItemID: "rifle"},
		{ActorID: "Bob", TargetID: "Alice", ServerID: "s1", ItemID: "knife"},
		{ActorID: "Alice", TargetID: "Bob", ServerID: "s1", ItemID: "rifle"},
	}
	r := aggregator.Pipeline{}.Run(events)

	var buf bytes.Buffer
	PrintInteractionReport(&buf, r)
	out := buf.String()

	for _, want := range []string{"Total kills: 3", "Alice", "Bob", "rifle", "knife", "+1", "66.7%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintInteractionReport_Empty(t *testing.T) {
	r := aggregator.Pipeline{Filter: aggregator.Filter{ServerID: "nope"}}.Run(nil)

	var buf bytes.Buffer
	PrintInteractionReport(&buf, r)
	if !strings.Contains(buf.String(), "no kills for this selection") {
		t.Errorf("expected empty-selection placeholder, got:\n%s", buf.String())
	}
}

func TestPrintDrilldown(t *testing.T) {
	edges := []model.DirectedEdgeCount{
		{From: "A", To: "B", Count: 2},
		{From: "B", To: "A", Count: 1},
		{From: "A", To: "C", Count: 1},
	}
	var buf bytes.Buffer
	PrintDrilldown(&buf, aggregator.Drilldown(edges, "A"))
	out := buf.String()

	for _, want := range []string{"Player: A", "Kills: 3", "Deaths: 1", "K/D: 3.00", "Victim: B (2)", "Nemesis: B (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintDrilldown(&buf, aggregator.Drilldown(edges, "C"))
	if !strings.Contains(buf.String(), "no mutual kills") {
		t.Errorf("expected no-rivalry placeholder, got:\n%s", buf.String())
	}
}

func TestPrintFeatureMatrix(t *testing.T) {
	rows := aggregator.BuildFeatureMatrix([]model.FeatureEvent{
		{Subject: "p1", Category: "weapon_used", Value: 2.5},
		{Subject: "p2", Category: "weapon_used", Value: 4},
	}, []string{"weapon_used"}, aggregator.MetricSum)
	cols := aggregator.Columns(rows)

	var buf bytes.Buffer
	PrintFeatureMatrix(&buf, rows, cols)
	if strings.Contains(strings.ToUpper(buf.String()), "CLUSTER") {
		t.Error("unlabelled matrix should not print a cluster column")
	}
	if !strings.Contains(buf.String(), "2.50") {
		t.Errorf("expected fractional value formatted with 2 decimals:\n%s", buf.String())
	}

	if err := aggregator.ApplyLabels(rows, []int{0, -1}); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	PrintFeatureMatrix(&buf, rows, cols)
	out := buf.String()
	if !strings.Contains(strings.ToUpper(out), "CLUSTER") || !strings.Contains(out, "noise") {
		t.Errorf("labelled matrix should show clusters and noise:\n%s", out)
	}
}

func TestPrintMinuteBucketsAndItems(t *testing.T) {
	var buf bytes.Buffer
	PrintMinuteBuckets(&buf, []model.MinuteBucket{
		{Minute: time.Date(2025, 5, 1, 13, 7, 0, 0, time.UTC), Count: 4},
	})
	if !strings.Contains(buf.String(), "2025-05-01 13:07") {
		t.Errorf("minute not printed:\n%s", buf.String())
	}

	buf.Reset()
	PrintItemCounts(&buf, []model.ItemCount{{Group: "Base", Item: "RecordPlayer", Count: 7}})
	if !strings.Contains(buf.String(), "RecordPlayer") || !strings.Contains(buf.String(), "7") {
		t.Errorf("item counts not printed:\n%s", buf.String())
	}
}

func TestPrintDatasets(t *testing.T) {
	var buf bytes.Buffer
	PrintDatasets(&buf, []model.Dataset{{
		Hash: "0123456789abcdef", Kind: model.KindDeaths, Name: "c8.csv", Rows: 12, ImportedAt: time.Now(),
	}})
	out := buf.String()
	if !strings.Contains(out, "0123456789ab") || strings.Contains(out, "0123456789abc") {
		t.Errorf("hash should be truncated to 12 characters:\n%s", out)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := signed(3); got != "+3" {
		t.Errorf("signed(3) = %s", got)
	}
	if got := signed(-2); got != "-2" {
		t.Errorf("signed(-2) = %s", got)
	}
	if got := pct(1, 0); got != "—" {
		t.Errorf("pct with zero total = %s", got)
	}
	if got := number(3); got != "3" {
		t.Errorf("number(3) = %s", got)
	}
}

func TestPrintQueryResult(t *testing.T) {
	var buf bytes.Buffer
	PrintQueryResult(&buf, []string{"kind", "n"}, [][]string{{"deaths", "3"}})
	if !strings.Contains(buf.String(), "deaths") || !strings.Contains(buf.String(), "(1 rows)") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	PrintQueryResult(&buf, []string{"kind"}, nil)
	if !strings.Contains(buf.String(), "(no rows)") {
		t.Errorf("expected empty placeholder, got:\n%s", buf.String())
	}
}
