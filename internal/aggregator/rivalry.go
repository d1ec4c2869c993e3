package aggregator

import (
	"sort"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// ResolveRivalries pairs every directed edge with its reverse and emits one
// record per unordered pair. PlayerA is the lexicographically smaller id, so
// (A,B) and (B,A) collapse into the same record whichever is visited first.
// Pairs engaged in one direction only are kept with zero on the other side.
// Self-kills are not rivalries.
func ResolveRivalries(edges []model.DirectedEdgeCount) []model.RivalryRecord {
	type pairKey struct{ from, to string }
	lookup := make(map[pairKey]int, len(edges))
	for _, e := range edges {
		if e.From == e.To || e.Count <= 0 {
			continue
		}
		lookup[pairKey{e.From, e.To}] += e.Count
	}

	seen := make(map[pairKey]struct{}, len(lookup))
	out := make([]model.RivalryRecord, 0, len(lookup))
	for k := range lookup {
		a, b := k.from, k.to
		if b < a {
			a, b = b, a
		}
		canon := pairKey{a, b}
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}

		aToB := lookup[pairKey{a, b}]
		bToA := lookup[pairKey{b, a}]
		out = append(out, model.RivalryRecord{
			PlayerA: a,
			PlayerB: b,
			AToB:    aToB,
			BToA:    bToA,
			Total:   aToB + bToA,
			Net:     aToB - bToA,
		})
	}
	SortRivalries(out)
	return out
}

// SortRivalries orders records by total descending, then |net| descending,
// then PlayerA and PlayerB ascending.
func SortRivalries(records []model.RivalryRecord) {
	sort.Slice(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if ri.Total != rj.Total {
			return ri.Total > rj.Total
		}
		if ai, aj := abs(ri.Net), abs(rj.Net); ai != aj {
			return ai > aj
		}
		if ri.PlayerA != rj.PlayerA {
			return ri.PlayerA < rj.PlayerA
		}
		return ri.PlayerB < rj.PlayerB
	})
}

// TopRivalries resolves, sorts and truncates to n records (n <= 0: all).
func TopRivalries(edges []model.DirectedEdgeCount, n int) []model.RivalryRecord {
	return takeTop(ResolveRivalries(edges), n)
}

// MutualOnly drops rivalries where one side never scored, matching the
// stricter "both killed each other" reading.
func MutualOnly(records []model.RivalryRecord) []model.RivalryRecord {
	out := make([]model.RivalryRecord, 0, len(records))
	for _, r := range records {
		if r.AToB > 0 && r.BToA > 0 {
			out = append(out, r)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
