package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintInteractionSummary prints the headline numbers of a kill log.
func PrintInteractionSummary(w io.Writer, server string, s model.InteractionSummary) {
	fmt.Fprintf(w, "\nServer: %s  |  Unique attackers: %d  |  Unique targets: %d  |  Total kills: %d\n\n",
		server, s.UniqueAttackers, s.UniqueTargets, s.TotalKills)
}

// PrintCounts prints a ranked value count, e.g. top killers or top weapons.
func PrintCounts(w io.Writer, label string, entries []model.CountEntry) {
	total := 0
	for _, e := range entries {
		total += e.Count
	}

	table := newTable(w)
	table.Header("#", label, "COUNT", "SHARE")
	for i, e := range entries {
		table.Append(
			strconv.Itoa(i+1),
			e.Key,
			strconv.Itoa(e.Count),
			pct(e.Count, total),
		)
	}
	table.Render()
}

// PrintGraph prints the kill graph nodes with their degree metrics.
func PrintGraph(w io.Writer, nodes []model.GraphNode) {
	table := newTable(w)
	table.Header("PLAYER", "OUT", "IN")
	for _, n := range nodes {
		table.Append(n.ID, strconv.Itoa(n.OutDegree), strconv.Itoa(n.InDegree))
	}
	table.Render()
}

// PrintRivalries prints the global rivalry leaderboard.
func PrintRivalries(w io.Writer, records []model.RivalryRecord) {
	table := newTable(w)
	table.Header("#", "PLAYER A", "PLAYER B", "A→B", "B→A", "TOTAL", "NET")
	for i, r := range records {
		table.Append(
			strconv.Itoa(i+1),
			r.PlayerA,
			r.PlayerB,
			strconv.Itoa(r.AToB),
			strconv.Itoa(r.BToA),
			strconv.Itoa(r.Total),
			signed(r.Net),
		)
	}
	table.Render()
}

// PrintInteractionReport prints every section of a kills report. Sections
// with no rows print a placeholder line instead of an empty table.
func PrintInteractionReport(w io.Writer, r aggregator.InteractionReport) {
	PrintInteractionSummary(w, r.Server, r.Summary)
	if r.Empty() {
		fmt.Fprintln(w, "(no kills for this selection)")
		return
	}

	fmt.Fprintln(w, "Top killers")
	PrintCounts(w, "PLAYER", r.TopKillers)
	fmt.Fprintln(w, "\nTop weapons")
	PrintCounts(w, "ITEM", r.TopItems)
	fmt.Fprintln(w, "\nKill graph")
	PrintGraph(w, r.Graph)
	fmt.Fprintln(w, "\nRivalries")
	if len(r.Rivalries) == 0 {
		fmt.Fprintln(w, "(no rivalries)")
		return
	}
	PrintRivalries(w, r.Rivalries)
}

// PrintDrilldown prints one player's kills, deaths and rivalries.
func PrintDrilldown(w io.Writer, d model.PlayerDrilldown) {
	victim, nemesis := "—", "—"
	if d.TopVictim != nil {
		victim = fmt.Sprintf("%s (%d)", d.TopVictim.Key, d.TopVictim.Count)
	}
	if d.TopNemesis != nil {
		nemesis = fmt.Sprintf("%s (%d)", d.TopNemesis.Key, d.TopNemesis.Count)
	}
	fmt.Fprintf(w, "\nPlayer: %s  |  Kills: %d  |  Deaths: %d  |  K/D: %.2f  |  Victim: %s  |  Nemesis: %s\n\n",
		d.Player, d.TotalKills, d.TotalDeaths, d.KDRatio(), victim, nemesis)

	fmt.Fprintln(w, "Kills")
	PrintCounts(w, "VICTIM", d.Kills)
	fmt.Fprintln(w, "\nDeaths")
	PrintCounts(w, "KILLER", d.Deaths)

	fmt.Fprintln(w, "\nRivalries")
	if len(d.Rivalries) == 0 {
		fmt.Fprintln(w, "(no mutual kills)")
		return
	}
	table := newTable(w)
	table.Header("OPPONENT", "KILLED", "KILLED BY", "NET")
	for _, r := range d.Rivalries {
		table.Append(r.Counterpart, strconv.Itoa(r.KilledByMe), strconv.Itoa(r.KilledMeBy), signed(r.Net))
	}
	table.Render()
}

// PrintFeatureMatrix prints one row per subject. The CLUSTER column is shown
// only when at least one row carries a label; -1 prints as "noise".
func PrintFeatureMatrix(w io.Writer, rows []model.FeatureRow, columns []string) {
	labelled := false
	for _, r := range rows {
		if r.Label != nil {
			labelled = true
			break
		}
	}

	header := []any{"SUBJECT"}
	for _, c := range columns {
		header = append(header, strings.ToUpper(c))
	}
	if labelled {
		header = append(header, "CLUSTER")
	}

	table := newTable(w)
	table.Header(header...)
	for _, r := range rows {
		row := []any{r.SubjectID}
		for _, c := range columns {
			row = append(row, number(r.Counts[c]))
		}
		if labelled {
			row = append(row, clusterLabel(r.Label))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintClusterSizes prints the member count of every cluster label.
func PrintClusterSizes(w io.Writer, sizes []model.CountEntry) {
	table := newTable(w)
	table.Header("CLUSTER", "SUBJECTS")
	for _, s := range sizes {
		key := s.Key
		if key == "-1" {
			key = "noise"
		}
		table.Append(key, strconv.Itoa(s.Count))
	}
	table.Render()
}

// PrintMinuteBuckets prints events per minute in chronological order.
func PrintMinuteBuckets(w io.Writer, buckets []model.MinuteBucket) {
	table := newTable(w)
	table.Header("MINUTE (UTC)", "DEATHS")
	for _, b := range buckets {
		table.Append(b.Minute.UTC().Format("2006-01-02 15:04"), strconv.Itoa(b.Count))
	}
	table.Render()
}

// PrintItemCounts prints blueprint acquisitions grouped as configured.
func PrintItemCounts(w io.Writer, counts []model.ItemCount) {
	table := newTable(w)
	table.Header("GROUP", "ITEM", "ACQUIRED")
	for _, c := range counts {
		table.Append(c.Group, c.Item, strconv.Itoa(c.Count))
	}
	table.Render()
}

// PrintDatasets prints the stored dataset list.
func PrintDatasets(w io.Writer, datasets []model.Dataset) {
	table := newTable(w)
	table.Header("HASH", "KIND", "NAME", "ROWS", "IMPORTED")
	for _, d := range datasets {
		table.Append(ShortHash(d.Hash), d.Kind, d.Name, strconv.Itoa(d.Rows), d.ImportedAt.Local().Format(time.DateTime))
	}
	table.Render()
}

// PrintQueryResult prints the output of a raw SQL query.
func PrintQueryResult(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}

// ShortHash truncates a content hash to the 12 characters used in listings.
func ShortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func pct(n, total int) string {
	if total == 0 {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func number(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func clusterLabel(l *int) string {
	switch {
	case l == nil:
		return "—"
	case *l < 0:
		return "noise"
	default:
		return strconv.Itoa(*l)
	}
}
