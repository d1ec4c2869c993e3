package aggregator

import (
	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Default section sizes of the kills report.
const (
	DefaultTopRivalries = 20
	DefaultTopKillers   = 100
	DefaultTopItems     = 30
)

// Pipeline is the single parameterized kill-log pipeline:
// normalize -> filter -> aggregate -> {summary, graph, rivalries}.
type Pipeline struct {
	Identities   *identity.Map
	Filter       Filter
	TopRivalries int
	TopKillers   int
	TopItems     int
	// MutualOnly keeps only rivalries where both players scored.
	MutualOnly bool
}

// InteractionReport is everything the kills dashboard renders.
type InteractionReport struct {
	Server     string                    `json:"server"`
	Servers    []string                  `json:"servers"`
	Players    []string                  `json:"players"`
	Summary    model.InteractionSummary  `json:"summary"`
	TopKillers []model.CountEntry        `json:"top_killers"`
	TopItems   []model.CountEntry        `json:"top_items"`
	Graph      []model.GraphNode         `json:"graph"`
	Edges      []model.DirectedEdgeCount `json:"edges"`
	Rivalries  []model.RivalryRecord     `json:"rivalries"`
}

// Run executes the pipeline over raw (un-normalized) events. Players and
// Servers are taken before filtering so selectors always list every option.
func (p Pipeline) Run(events []model.InteractionEvent) InteractionReport {
	normalized := identity.Normalize(events, p.Identities)
	filtered := FilterInteractions(normalized, p.Filter)
	edges := Aggregate(filtered)

	rivalries := ResolveRivalries(edges)
	if p.MutualOnly {
		rivalries = MutualOnly(rivalries)
	}

	server := p.Filter.ServerID
	if server == "" {
		server = AllServers
	}
	return InteractionReport{
		Server:     server,
		Servers:    Servers(normalized),
		Players:    Players(normalized),
		Summary:    Summarize(filtered),
		TopKillers: TopKillers(filtered, p.TopKillers),
		TopItems:   TopItems(filtered, p.TopItems),
		Graph:      Graph(edges),
		Edges:      edges,
		Rivalries:  takeTop(rivalries, p.TopRivalries),
	}
}

// Player drills into one player using the report's aggregated edges.
func (r InteractionReport) Player(name string) model.PlayerDrilldown {
	return Drilldown(r.Edges, name)
}

// Empty reports whether the filter selected no kills.
func (r InteractionReport) Empty() bool {
	return r.Summary.TotalKills == 0
}

// FeaturePipeline pivots a feature log with a fixed column schema.
type FeaturePipeline struct {
	Required []string
	Metric   Metric
}

// Run builds the feature matrix. A nil Required falls back to DefaultCategories.
func (p FeaturePipeline) Run(events []model.FeatureEvent) []model.FeatureRow {
	return BuildFeatureMatrix(events, p.required(), p.Metric)
}

// Columns is the fixed schema every row of Run carries.
func (p FeaturePipeline) Columns() []string {
	return FeatureColumns(p.required())
}

func (p FeaturePipeline) required() []string {
	if p.Required == nil {
		return DefaultCategories
	}
	return p.Required
}
