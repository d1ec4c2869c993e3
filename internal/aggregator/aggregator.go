package aggregator

import (
	"sort"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// AllServers is the selector value that disables server filtering.
const AllServers = "All"

// Filter narrows a kill log before aggregation.
type Filter struct {
	ServerID string
}

// FilterInteractions returns the events matching f. An empty or "All"
// server id keeps every row.
func FilterInteractions(events []model.InteractionEvent, f Filter) []model.InteractionEvent {
	if f.ServerID == "" || f.ServerID == AllServers {
		return events
	}
	out := make([]model.InteractionEvent, 0, len(events))
	for _, e := range events {
		if e.ServerID == f.ServerID {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate groups kills by ordered (actor, target) pair. Rows with a missing
// actor or target are excluded. Callers must not rely on output order; it is
// (From, To) ascending so repeated runs print identically.
func Aggregate(events []model.InteractionEvent) []model.DirectedEdgeCount {
	type pairKey struct{ from, to string }
	counts := make(map[pairKey]int)
	for _, e := range events {
		if e.ActorID == "" || e.TargetID == "" {
			continue
		}
		counts[pairKey{e.ActorID, e.TargetID}]++
	}

	out := make([]model.DirectedEdgeCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, model.DirectedEdgeCount{From: k.from, To: k.to, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Summarize counts distinct attackers, distinct targets and total rows.
func Summarize(events []model.InteractionEvent) model.InteractionSummary {
	attackers := make(map[string]struct{})
	targets := make(map[string]struct{})
	for _, e := range events {
		if e.ActorID != "" {
			attackers[e.ActorID] = struct{}{}
		}
		if e.TargetID != "" {
			targets[e.TargetID] = struct{}{}
		}
	}
	return model.InteractionSummary{
		UniqueAttackers: len(attackers),
		UniqueTargets:   len(targets),
		TotalKills:      len(events),
	}
}

// TopKillers counts kills per actor, descending. n <= 0 returns every actor.
func TopKillers(events []model.InteractionEvent, n int) []model.CountEntry {
	return valueCounts(events, func(e model.InteractionEvent) string { return e.ActorID }, n)
}

// TopItems counts kills per item (weapon), descending. n <= 0 returns every item.
func TopItems(events []model.InteractionEvent, n int) []model.CountEntry {
	return valueCounts(events, func(e model.InteractionEvent) string { return e.ItemID }, n)
}

func valueCounts[T any](rows []T, key func(T) string, n int) []model.CountEntry {
	counts := make(map[string]int)
	for _, r := range rows {
		if k := key(r); k != "" {
			counts[k]++
		}
	}
	return takeTop(sortedCounts(counts), n)
}

// sortedCounts flattens a counter map, count descending then key ascending.
func sortedCounts(counts map[string]int) []model.CountEntry {
	out := make([]model.CountEntry, 0, len(counts))
	for k, c := range counts {
		out = append(out, model.CountEntry{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func takeTop[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// Graph returns the nodes of the directed kill graph with their degrees,
// ordered by out-degree descending then id. Self-kills count as a loop edge.
func Graph(edges []model.DirectedEdgeCount) []model.GraphNode {
	nodes := make(map[string]*model.GraphNode)
	node := func(id string) *model.GraphNode {
		if nodes[id] == nil {
			nodes[id] = &model.GraphNode{ID: id}
		}
		return nodes[id]
	}
	for _, e := range edges {
		node(e.From).OutDegree++
		node(e.To).InDegree++
	}

	out := make([]model.GraphNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OutDegree != out[j].OutDegree {
			return out[i].OutDegree > out[j].OutDegree
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Players returns the sorted union of actors and targets.
func Players(events []model.InteractionEvent) []string {
	set := make(map[string]struct{})
	for _, e := range events {
		if e.ActorID != "" {
			set[e.ActorID] = struct{}{}
		}
		if e.TargetID != "" {
			set[e.TargetID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Servers returns the sorted distinct server ids of a kill log.
func Servers(events []model.InteractionEvent) []string {
	set := make(map[string]struct{})
	for _, e := range events {
		if e.ServerID != "" {
			set[e.ServerID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
