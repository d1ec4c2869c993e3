package aggregator

import (
	"reflect"
	"testing"

	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// kill builds an interaction row on server s1 with a rifle.
func kill(actor, target string) model.InteractionEvent {
	return model.InteractionEvent{ActorID: actor, TargetID: target, ServerID: "s1", ItemID: "rifle"}
}

// kills expands "A>B" style pairs into events.
func kills(pairs ...[2]string) []model.InteractionEvent {
	out := make([]model.InteractionEvent, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, kill(p[0], p[1]))
	}
	return out
}

func edgeMap(edges []model.DirectedEdgeCount) map[[2]string]int {
	m := make(map[[2]string]int, len(edges))
	for _, e := range edges {
		m[[2]string{e.From, e.To}] = e.Count
	}
	return m
}

// ---- Aggregate ----

func TestAggregate_Scenario(t *testing.T) {
	events := kills([2]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	got := edgeMap(Aggregate(events))
	want := map[[2]string]int{{"A", "B"}: 2, {"B", "A"}: 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges: want %v, got %v", want, got)
	}
}

func TestAggregate_CountConservation(t *testing.T) {
	events := kills(
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"},
		[2]string{"A", "B"}, [2]string{"", "B"}, [2]string{"A", ""},
		[2]string{"D", "D"},
	)
	valid := 0
	for _, e := range events {
		if e.ActorID != "" && e.TargetID != "" {
			valid++
		}
	}

	sum := 0
	for _, e := range Aggregate(events) {
		if e.Count < 1 {
			t.Errorf("edge %s->%s has count %d < 1", e.From, e.To, e.Count)
		}
		sum += e.Count
	}
	if sum != valid {
		t.Errorf("sum of edge counts: want %d, got %d", valid, sum)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Errorf("expected no edges, got %v", got)
	}
}

func TestFilterInteractions(t *testing.T) {
	events := []model.InteractionEvent{
		{ActorID: "A", TargetID: "B", ServerID: "s1"},
		{ActorID: "A", TargetID: "C", ServerID: "s2"},
	}
	if got := FilterInteractions(events, Filter{ServerID: AllServers}); len(got) != 2 {
		t.Errorf("All should keep every row, got %d", len(got))
	}
	got := FilterInteractions(events, Filter{ServerID: "s2"})
	if len(got) != 1 || got[0].TargetID != "C" {
		t.Errorf("server filter: unexpected %v", got)
	}
	if got := FilterInteractions(events, Filter{ServerID: "s9"}); len(got) != 0 {
		t.Errorf("unknown server should select nothing, got %v", got)
	}
}

func TestSummarizeAndTopCounts(t *testing.T) {
	events := []model.InteractionEvent{
		{ActorID: "A", TargetID: "B", ItemID: "rifle"},
		{ActorID: "A", TargetID: "C", ItemID: "rifle"},
		{ActorID: "B", TargetID: "A", ItemID: "knife"},
		{ActorID: "C", TargetID: "A", ItemID: ""},
	}
	s := Summarize(events)
	if s.UniqueAttackers != 3 || s.UniqueTargets != 3 || s.TotalKills != 4 {
		t.Errorf("unexpected summary %+v", s)
	}

	top := TopKillers(events, 2)
	want := []model.CountEntry{{Key: "A", Count: 2}, {Key: "B", Count: 1}}
	if !reflect.DeepEqual(top, want) {
		t.Errorf("TopKillers: want %v, got %v", want, top)
	}

	items := TopItems(events, 0)
	wantItems := []model.CountEntry{{Key: "rifle", Count: 2}, {Key: "knife", Count: 1}}
	if !reflect.DeepEqual(items, wantItems) {
		t.Errorf("TopItems: want %v, got %v", wantItems, items)
	}
}

func TestGraph(t *testing.T) {
	edges := Aggregate(kills([2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"B", "A"}, [2]string{"A", "B"}))
	nodes := Graph(edges)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != "A" || nodes[0].OutDegree != 2 || nodes[0].InDegree != 1 {
		t.Errorf("A should lead with out=2 in=1, got %+v", nodes[0])
	}
	if nodes[2].ID != "C" || nodes[2].OutDegree != 0 || nodes[2].InDegree != 1 {
		t.Errorf("C should be last with in=1, got %+v", nodes[2])
	}
}

func TestPlayersAndServers(t *testing.T) {
	events := []model.InteractionEvent{
		{ActorID: "b", TargetID: "a", ServerID: "s2"},
		{ActorID: "c", TargetID: "", ServerID: "s1"},
	}
	if got := Players(events); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Players: %v", got)
	}
	if got := Servers(events); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("Servers: %v", got)
	}
}

// ---- Rivalries ----

func TestResolveRivalries_Scenario(t *testing.T) {
	edges := Aggregate(kills([2]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"}))
	got := ResolveRivalries(edges)
	want := []model.RivalryRecord{{PlayerA: "A", PlayerB: "B", AToB: 2, BToA: 1, Total: 3, Net: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestResolveRivalries_OrientationIndependentOfVisitOrder(t *testing.T) {
	// Only the reverse direction is listed first; PlayerA must still be "alice".
	edges := []model.DirectedEdgeCount{
		{From: "bob", To: "alice", Count: 5},
		{From: "alice", To: "bob", Count: 1},
	}
	got := ResolveRivalries(edges)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	r := got[0]
	if r.PlayerA != "alice" || r.PlayerB != "bob" || r.AToB != 1 || r.BToA != 5 || r.Net != -4 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestResolveRivalries_OneDirectionKept(t *testing.T) {
	got := ResolveRivalries([]model.DirectedEdgeCount{{From: "zed", To: "amy", Count: 3}})
	want := []model.RivalryRecord{{PlayerA: "amy", PlayerB: "zed", AToB: 0, BToA: 3, Total: 3, Net: -3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %+v, got %+v", want, got)
	}
	if len(MutualOnly(got)) != 0 {
		t.Error("MutualOnly should drop one-sided pairs")
	}
}

func TestResolveRivalries_SelfPairsExcluded(t *testing.T) {
	got := ResolveRivalries([]model.DirectedEdgeCount{{From: "A", To: "A", Count: 4}})
	if len(got) != 0 {
		t.Errorf("self-kills are not rivalries, got %+v", got)
	}
}

func TestResolveRivalries_Invariants(t *testing.T) {
	events := kills(
		[2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "C"},
		[2]string{"C", "B"}, [2]string{"C", "B"}, [2]string{"D", "A"},
		[2]string{"A", "D"}, [2]string{"E", "F"}, [2]string{"F", "E"},
		[2]string{"C", "A"},
	)
	records := ResolveRivalries(Aggregate(events))

	seen := make(map[[2]string]bool)
	for _, r := range records {
		if !(r.PlayerA < r.PlayerB) {
			t.Errorf("PlayerA must sort before PlayerB: %+v", r)
		}
		key := [2]string{r.PlayerA, r.PlayerB}
		if seen[key] {
			t.Errorf("duplicate record for pair %v", key)
		}
		seen[key] = true
		if r.Total != r.AToB+r.BToA {
			t.Errorf("total mismatch %+v", r)
		}
		if r.Net != r.AToB-r.BToA {
			t.Errorf("net mismatch %+v", r)
		}
	}
	if len(records) != 5 {
		t.Errorf("expected 5 unordered pairs, got %d", len(records))
	}
}

func TestSortRivalries(t *testing.T) {
	records := []model.RivalryRecord{
		{PlayerA: "c", PlayerB: "d", Total: 4, Net: 0},
		{PlayerA: "a", PlayerB: "b", Total: 4, Net: -2},
		{PlayerA: "b", PlayerB: "c", Total: 6, Net: 0},
		{PlayerA: "a", PlayerB: "c", Total: 4, Net: 0},
	}
	SortRivalries(records)
	order := []string{"b-c", "a-b", "a-c", "c-d"}
	for i, r := range records {
		if got := r.PlayerA + "-" + r.PlayerB; got != order[i] {
			t.Errorf("position %d: want %s, got %s", i, order[i], got)
		}
	}
}

func TestTopRivalries_Truncates(t *testing.T) {
	var events []model.InteractionEvent
	for _, p := range []string{"b", "c", "d", "e"} {
		events = append(events, kill("a", p))
	}
	if got := TopRivalries(Aggregate(events), 2); len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
	if got := TopRivalries(Aggregate(events), 0); len(got) != 4 {
		t.Errorf("n=0 should return every record, got %d", len(got))
	}
}

// ---- Drilldown ----

func TestDrilldown_Scenario(t *testing.T) {
	edges := Aggregate(kills([2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"A", "B"}))
	d := Drilldown(edges, "A")

	if !reflect.DeepEqual(d.Kills, []model.CountEntry{{Key: "B", Count: 2}}) {
		t.Errorf("Kills: %v", d.Kills)
	}
	if !reflect.DeepEqual(d.Deaths, []model.CountEntry{{Key: "B", Count: 1}}) {
		t.Errorf("Deaths: %v", d.Deaths)
	}
	want := []model.PlayerRivalry{{Counterpart: "B", KilledByMe: 2, KilledMeBy: 1, Net: 1}}
	if !reflect.DeepEqual(d.Rivalries, want) {
		t.Errorf("Rivalries: want %v, got %v", want, d.Rivalries)
	}
	if d.TotalKills != 2 || d.TotalDeaths != 1 {
		t.Errorf("totals: kills=%d deaths=%d", d.TotalKills, d.TotalDeaths)
	}
	if d.TopVictim == nil || d.TopVictim.Key != "B" || d.TopNemesis == nil || d.TopNemesis.Key != "B" {
		t.Errorf("victim/nemesis: %+v / %+v", d.TopVictim, d.TopNemesis)
	}
	if d.KDRatio() != 2 {
		t.Errorf("KDRatio: want 2, got %v", d.KDRatio())
	}
}

func TestDrilldown_OrderingAndEmptyJoin(t *testing.T) {
	edges := Aggregate(kills(
		[2]string{"P", "X"}, [2]string{"P", "X"}, [2]string{"P", "X"},
		[2]string{"P", "Y"}, [2]string{"Y", "P"}, [2]string{"Y", "P"},
		[2]string{"Z", "P"},
		[2]string{"P", "W"}, [2]string{"W", "P"},
	))
	d := Drilldown(edges, "P")

	if d.Kills[0].Key != "X" || d.Kills[0].Count != 3 {
		t.Errorf("kills should be sorted by count desc, got %v", d.Kills)
	}
	if d.Deaths[0].Key != "Y" || d.Deaths[0].Count != 2 {
		t.Errorf("deaths should be sorted by count desc, got %v", d.Deaths)
	}
	// X and Z are one-sided, so only W and Y join. W (net 0) ranks above Y (net -1).
	if len(d.Rivalries) != 2 || d.Rivalries[0].Counterpart != "W" || d.Rivalries[1].Net != -1 {
		t.Errorf("unexpected rivalries %+v", d.Rivalries)
	}

	loner := Drilldown(Aggregate(kills([2]string{"Q", "R"})), "Q")
	if loner.Rivalries == nil || len(loner.Rivalries) != 0 {
		t.Errorf("empty join should be an empty, non-nil list: %#v", loner.Rivalries)
	}
	if loner.TopNemesis != nil {
		t.Error("player never killed should have no nemesis")
	}
}

func TestDrilldown_UnknownPlayer(t *testing.T) {
	d := Drilldown(Aggregate(kills([2]string{"A", "B"})), "nobody")
	if d.TotalKills != 0 || d.TotalDeaths != 0 || len(d.Kills) != 0 {
		t.Errorf("unknown player should yield an empty drilldown, got %+v", d)
	}
}

func TestDrilldown_SelfKillNotARivalry(t *testing.T) {
	d := Drilldown(Aggregate(kills([2]string{"A", "A"}, [2]string{"A", "B"}, [2]string{"B", "A"})), "A")
	if d.TotalKills != 2 || d.TotalDeaths != 2 {
		t.Errorf("self-kill counts on both sides: kills=%d deaths=%d", d.TotalKills, d.TotalDeaths)
	}
	if len(d.Kills) != 2 || len(d.Deaths) != 2 {
		t.Errorf("self-kill stays in the breakdowns: %+v %+v", d.Kills, d.Deaths)
	}
	if len(d.Rivalries) != 1 || d.Rivalries[0].Counterpart != "B" {
		t.Errorf("only B is a rivalry, got %+v", d.Rivalries)
	}
	if d.TopVictim == nil || d.TopVictim.Key != "B" || d.TopNemesis == nil || d.TopNemesis.Key != "B" {
		t.Errorf("top victim and nemesis skip the player: %+v %+v", d.TopVictim, d.TopNemesis)
	}
}

// ---- Pipeline ----

func TestPipeline_RunIsIdempotent(t *testing.T) {
	ids := identity.New(map[string]string{"id-a": "Alice", "id-b": "Bob"})
	events := []model.InteractionEvent{
		{ActorID: "id-a", TargetID: "id-b", ServerID: "s1", ItemID: "rifle"},
		{ActorID: "id-b", TargetID: "id-a", ServerID: "s1", ItemID: "rifle"},
		{ActorID: "id-a", TargetID: "id-b", ServerID: "s2", ItemID: "knife"},
		{ActorID: "id-a", TargetID: "raw-c", ServerID: "s2", ItemID: "knife"},
	}
	p := Pipeline{Identities: ids, TopRivalries: DefaultTopRivalries}

	first := p.Run(events)
	second := p.Run(events)
	if !reflect.DeepEqual(first, second) {
		t.Error("pipeline output differs between identical runs")
	}

	if first.Server != AllServers {
		t.Errorf("empty filter should report All, got %q", first.Server)
	}
	if first.Rivalries[0].PlayerA != "Alice" || first.Rivalries[0].PlayerB != "Bob" || first.Rivalries[0].Total != 3 {
		t.Errorf("unexpected top rivalry %+v", first.Rivalries[0])
	}
	if !reflect.DeepEqual(first.Players, []string{"Alice", "Bob", "raw-c"}) {
		t.Errorf("players: %v", first.Players)
	}

	d := first.Player("Alice")
	if d.TotalKills != 3 || d.TotalDeaths != 1 {
		t.Errorf("drilldown totals: %+v", d)
	}
}

func TestPipeline_ServerFilterKeepsSelectors(t *testing.T) {
	events := []model.InteractionEvent{
		{ActorID: "a", TargetID: "b", ServerID: "s1"},
		{ActorID: "c", TargetID: "d", ServerID: "s2"},
	}
	r := Pipeline{Filter: Filter{ServerID: "s3"}}.Run(events)
	if !r.Empty() {
		t.Error("unknown server should produce an empty report")
	}
	if len(r.Servers) != 2 || len(r.Players) != 4 {
		t.Errorf("selectors should list every option: servers=%v players=%v", r.Servers, r.Players)
	}
	if len(r.Rivalries) != 0 || len(r.Edges) != 0 {
		t.Error("empty selection should degrade to empty aggregates")
	}
}

func TestPipeline_MutualOnlyBeforeTop(t *testing.T) {
	events := []model.InteractionEvent{
		kill("a", "b"), kill("a", "b"), kill("a", "b"), kill("a", "b"),
		kill("c", "d"), kill("d", "c"),
	}
	p := Pipeline{TopRivalries: 1}
	if r := p.Run(events); len(r.Rivalries) != 1 || r.Rivalries[0].PlayerA != "a" {
		t.Fatalf("without mutual the one-sided pair leads: %+v", r.Rivalries)
	}

	p.MutualOnly = true
	r := p.Run(events)
	want := []model.RivalryRecord{{PlayerA: "c", PlayerB: "d", AToB: 1, BToA: 1, Total: 2, Net: 0}}
	if !reflect.DeepEqual(r.Rivalries, want) {
		t.Errorf("mutual rivalries: want %+v, got %+v", want, r.Rivalries)
	}
	if len(r.Edges) != 3 {
		t.Errorf("mutual filter must not touch edges, got %+v", r.Edges)
	}
}
