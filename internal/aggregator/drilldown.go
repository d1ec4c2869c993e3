package aggregator

import (
	"sort"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Drilldown builds the combat breakdown for player from the aggregated edge
// set, so the global rivalry table and the per-player view share one grouping.
func Drilldown(edges []model.DirectedEdgeCount, player string) model.PlayerDrilldown {
	d := model.PlayerDrilldown{
		Player:    player,
		Kills:     []model.CountEntry{},
		Deaths:    []model.CountEntry{},
		Rivalries: []model.PlayerRivalry{},
	}
	if player == "" {
		return d
	}

	killed := make(map[string]int)
	killedBy := make(map[string]int)
	for _, e := range edges {
		if e.From == player {
			killed[e.To] += e.Count
			d.TotalKills += e.Count
		}
		if e.To == player {
			killedBy[e.From] += e.Count
			d.TotalDeaths += e.Count
		}
	}
	d.Kills = sortedCounts(killed)
	d.Deaths = sortedCounts(killedBy)

	// Self-kills count in the breakdowns but are never a rivalry, as in
	// ResolveRivalries.
	for other, k := range killed {
		if other == player {
			continue
		}
		if kb, ok := killedBy[other]; ok {
			d.Rivalries = append(d.Rivalries, model.PlayerRivalry{
				Counterpart: other,
				KilledByMe:  k,
				KilledMeBy:  kb,
				Net:         k - kb,
			})
		}
	}
	sort.Slice(d.Rivalries, func(i, j int) bool {
		if d.Rivalries[i].Net != d.Rivalries[j].Net {
			return d.Rivalries[i].Net > d.Rivalries[j].Net
		}
		return d.Rivalries[i].Counterpart < d.Rivalries[j].Counterpart
	})

	d.TopVictim = firstOther(d.Kills, player)
	d.TopNemesis = firstOther(d.Deaths, player)
	return d
}

// firstOther returns the highest-count entry that is not the player itself.
func firstOther(entries []model.CountEntry, player string) *model.CountEntry {
	for _, e := range entries {
		if e.Key != player {
			e := e
			return &e
		}
	}
	return nil
}
