package aggregator

import (
	"sort"
	"time"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// DeathFilter narrows a death log. Empty or "All" fields match everything.
type DeathFilter struct {
	Cause      string
	CarriageID string
	ServerID   string
}

func matches(want, got string) bool {
	return want == "" || want == AllServers || want == got
}

// FilterDeaths returns the events matching every set field of f.
func FilterDeaths(events []model.DeathEvent, f DeathFilter) []model.DeathEvent {
	out := make([]model.DeathEvent, 0, len(events))
	for _, e := range events {
		if matches(f.Cause, e.Cause) && matches(f.CarriageID, e.CarriageID) && matches(f.ServerID, e.ServerID) {
			out = append(out, e)
		}
	}
	return out
}

// CauseDistribution counts deaths per cause, descending.
func CauseDistribution(events []model.DeathEvent) []model.CountEntry {
	return valueCounts(events, func(e model.DeathEvent) string { return e.Cause }, 0)
}

// DeathsByMinute buckets timed events per minute, chronologically.
// Events without a timestamp are ignored.
func DeathsByMinute(events []model.DeathEvent) []model.MinuteBucket {
	counts := make(map[time.Time]int)
	for _, e := range events {
		if e.HasTime {
			counts[e.Minute()]++
		}
	}
	out := make([]model.MinuteBucket, 0, len(counts))
	for m, c := range counts {
		out = append(out, model.MinuteBucket{Minute: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minute.Before(out[j].Minute) })
	return out
}

// DeathOptions lists the distinct selector values of a death log.
type DeathOptions struct {
	Causes    []string `json:"causes"`
	Carriages []string `json:"carriages"`
	Servers   []string `json:"servers"`
}

// Options collects the sorted distinct causes, carriages and servers.
func Options(events []model.DeathEvent) DeathOptions {
	causes := make(map[string]struct{})
	carriages := make(map[string]struct{})
	servers := make(map[string]struct{})
	for _, e := range events {
		if e.Cause != "" {
			causes[e.Cause] = struct{}{}
		}
		if e.CarriageID != "" {
			carriages[e.CarriageID] = struct{}{}
		}
		if e.ServerID != "" {
			servers[e.ServerID] = struct{}{}
		}
	}
	return DeathOptions{
		Causes:    sortedKeys(causes),
		Carriages: sortedKeys(carriages),
		Servers:   sortedKeys(servers),
	}
}
