package ingest

import (
	"fmt"
	"strings"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Dataset is a decoded table of one kind. Only the slice matching Kind is set.
type Dataset struct {
	Kind         string
	Hash         string
	Name         string
	Interactions []model.InteractionEvent
	Features     []model.FeatureEvent
	Deaths       []model.DeathEvent
	Shop         []model.ShopEvent
}

// Len returns the number of decoded rows.
func (d *Dataset) Len() int {
	switch d.Kind {
	case model.KindInteractions:
		return len(d.Interactions)
	case model.KindFeatures:
		return len(d.Features)
	case model.KindDeaths:
		return len(d.Deaths)
	case model.KindShop:
		return len(d.Shop)
	}
	return 0
}

// Meta returns the store record for d.
func (d *Dataset) Meta() model.Dataset {
	return model.Dataset{Hash: d.Hash, Kind: d.Kind, Name: d.Name, Rows: d.Len()}
}

// Decode validates t against the schema of kind and decodes its rows.
func Decode(t *Table, kind string) (*Dataset, error) {
	d := &Dataset{Kind: kind, Hash: t.Hash, Name: t.Name}
	var err error
	switch kind {
	case model.KindInteractions:
		d.Interactions, err = Interactions(t)
	case model.KindFeatures:
		d.Features, err = Features(t)
	case model.KindDeaths:
		d.Deaths, err = Deaths(t)
	case model.KindShop:
		d.Shop, err = Shop(t)
	default:
		return nil, fmt.Errorf("unknown dataset kind %q (want one of %v)", kind, model.Kinds)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Concat merges datasets of one kind into a single dataset, preserving input
// order. The result carries the hash of a lone part; a merge has no single
// content hash.
func Concat(kind string, parts ...*Dataset) (*Dataset, error) {
	out := &Dataset{Kind: kind}
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Kind != kind {
			return nil, fmt.Errorf("cannot merge %s dataset %q into %s", p.Kind, p.Name, kind)
		}
		out.Interactions = append(out.Interactions, p.Interactions...)
		out.Features = append(out.Features, p.Features...)
		out.Deaths = append(out.Deaths, p.Deaths...)
		out.Shop = append(out.Shop, p.Shop...)
		names = append(names, p.Name)
	}
	if len(parts) == 1 {
		out.Hash = parts[0].Hash
	}
	out.Name = strings.Join(names, "+")
	return out, nil
}
