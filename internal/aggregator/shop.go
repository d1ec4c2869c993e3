package aggregator

import (
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// CountAcquisitions counts, for each configured item, how many knowledge
// cells across all rows equal it. Output follows group then item order.
func CountAcquisitions(events []model.ShopEvent, groups []model.ItemGroup) []model.ItemCount {
	seen := make(map[string]int)
	for _, e := range events {
		for _, k := range e.Knowledge {
			seen[k]++
		}
	}

	var out []model.ItemCount
	for _, g := range groups {
		for _, item := range g.Items {
			out = append(out, model.ItemCount{Group: g.Name, Item: item, Count: seen[item]})
		}
	}
	return out
}

// GroupTotals sums item counts per group, in first-seen group order.
func GroupTotals(counts []model.ItemCount) []model.CountEntry {
	var out []model.CountEntry
	index := make(map[string]int)
	for _, c := range counts {
		i, ok := index[c.Group]
		if !ok {
			i = len(out)
			index[c.Group] = i
			out = append(out, model.CountEntry{Key: c.Group})
		}
		out[i].Count += c.Count
	}
	return out
}

// DefaultItemGroups are the blueprint families tracked by the shop report.
var DefaultItemGroups = []model.ItemGroup{
	{
		Name: "Weapons",
		Items: []string{
			"Exchange.Blueprint.Weapon.Rifle_T2_AlphaStrike_Teal",
			"Exchange.Blueprint.Weapon.Rifle_T2_AlphaStrike_Red",
			"Exchange.Blueprint.Weapon.Rifle_T2_AlphaStrike_Blue",
		},
	},
	{
		Name: "Cosmetics",
		Items: []string{
			"Exchange.Blueprint.Clothing.ScrapPunk.Boots",
			"Exchange.Blueprint.Clothing.ScrapPunk.Gloves",
			"Exchange.Blueprint.Clothing.ScrapPunk.Jacket",
			"Exchange.Blueprint.Clothing.ScrapPunk.Pants",
			"Exchange.Blueprint.Clothing.ScrapPunk.Singlet",
			"Exchange.Blueprint.Clothing.ScrapPunk.Headband",
			"Exchange.Blueprint.Armor.GasMask_T3_ToxicSkin",
			"Exchange.Blueprint.Armor.GasMask_T3_ToxicRedSkin",
			"Exchange.Blueprint.Armor.GasMask_T3_ToxicSkin_Spiky",
			"Exchange.Blueprint.Armor.GasMask_T3_ToxicZombieSkin",
		},
	},
	{
		Name:  "Base",
		Items: []string{"Exchange.Blueprint.Buildable.RecordPlayer"},
	},
}
