package model

import (
	"time"
)

// Dataset kinds accepted by the importer.
const (
	KindInteractions = "interactions"
	KindFeatures     = "features"
	KindDeaths       = "deaths"
	KindShop         = "shop"
)

// Kinds lists every dataset kind in display order.
var Kinds = []string{KindInteractions, KindFeatures, KindDeaths, KindShop}

// ---- Raw rows produced by the ingest layer ----

// InteractionEvent is one kill row: actor killed target on a server with an item.
type InteractionEvent struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
	ServerID string `json:"server_id"`
	ItemID   string `json:"item_id"`
}

// FeatureEvent is one long-form (subject, category, value) counter row.
type FeatureEvent struct {
	Subject  string  `json:"subject"`
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// DeathEvent is a death or placement location row.
type DeathEvent struct {
	X, Y, Z    float64
	Cause      string
	CarriageID string
	ServerID   string
	Time       time.Time
	HasTime    bool
}

// Minute returns the event time truncated to minute resolution.
func (d DeathEvent) Minute() time.Time {
	return d.Time.Truncate(time.Minute)
}

// ShopEvent holds every knowledge_granted.* cell of a shop export row.
type ShopEvent struct {
	DistinctID string
	Knowledge  []string
	Time       time.Time
	HasTime    bool
}

// Dataset is the metadata of an imported CSV.
type Dataset struct {
	Hash       string    `json:"hash"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// ---- Aggregated metrics ----

// DirectedEdgeCount is the number of kills by From on To.
type DirectedEdgeCount struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// RivalryRecord scores one unordered pair. PlayerA sorts before PlayerB.
type RivalryRecord struct {
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
	AToB    int    `json:"a_to_b"`
	BToA    int    `json:"b_to_a"`
	Total   int    `json:"total"`
	Net     int    `json:"net"`
}

// CountEntry is one row of a value count.
type CountEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// InteractionSummary holds the headline numbers of a kill log.
type InteractionSummary struct {
	UniqueAttackers int `json:"unique_attackers"`
	UniqueTargets   int `json:"unique_targets"`
	TotalKills      int `json:"total_kills"`
}

// GraphNode is a player in the directed kill graph.
type GraphNode struct {
	ID        string `json:"id"`
	OutDegree int    `json:"out_degree"`
	InDegree  int    `json:"in_degree"`
}

// PlayerRivalry is a mutual kill exchange seen from one player.
type PlayerRivalry struct {
	Counterpart string `json:"counterpart"`
	KilledByMe  int    `json:"killed_by_me"`
	KilledMeBy  int    `json:"killed_me_by"`
	Net         int    `json:"net"`
}

// PlayerDrilldown is the combat breakdown for a single player.
type PlayerDrilldown struct {
	Player      string          `json:"player"`
	TotalKills  int             `json:"total_kills"`
	TotalDeaths int             `json:"total_deaths"`
	Kills       []CountEntry    `json:"kills"`
	Deaths      []CountEntry    `json:"deaths"`
	Rivalries   []PlayerRivalry `json:"rivalries"`
	TopVictim   *CountEntry     `json:"top_victim,omitempty"`
	TopNemesis  *CountEntry     `json:"top_nemesis,omitempty"`
}

// KDRatio returns kills/deaths, or kills when the player never died.
func (d PlayerDrilldown) KDRatio() float64 {
	if d.TotalDeaths == 0 {
		return float64(d.TotalKills)
	}
	return float64(d.TotalKills) / float64(d.TotalDeaths)
}

// FeatureRow is one subject's wide feature vector.
type FeatureRow struct {
	SubjectID string             `json:"subject_id"`
	Counts    map[string]float64 `json:"counts"`
	Label     *int               `json:"label,omitempty"`
}

// MinuteBucket counts events that happened within one wall-clock minute.
type MinuteBucket struct {
	Minute time.Time `json:"minute"`
	Count  int       `json:"count"`
}

// ItemGroup is a named list of blueprint items tracked by the shop report.
type ItemGroup struct {
	Name  string   `koanf:"name" json:"name" validate:"required"`
	Items []string `koanf:"items" json:"items"`
}

// ItemCount is the acquisition count of one blueprint item.
type ItemCount struct {
	Group string `json:"group"`
	Item  string `json:"item"`
	Count int    `json:"count"`
}
