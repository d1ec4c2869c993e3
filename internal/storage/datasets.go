package storage

import (
	"fmt"
	"time"

	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Import stores a decoded dataset. A dataset whose content hash is already
// stored is not rewritten; the stored record is returned with cached=true.
func (db *DB) Import(d *ingest.Dataset) (meta model.Dataset, cached bool, err error) {
	exists, err := db.DatasetExists(d.Hash)
	if err != nil {
		return meta, false, fmt.Errorf("check dataset: %w", err)
	}
	if exists {
		stored, err := db.GetDatasetByPrefix(d.Hash)
		if err != nil {
			return meta, false, fmt.Errorf("load cached dataset: %w", err)
		}
		if stored == nil {
			return meta, false, fmt.Errorf("load cached dataset %s: %w", short(d.Hash), ErrNotFound)
		}
		return *stored, true, nil
	}

	meta = d.Meta()
	meta.ImportedAt = time.Now().UTC()
	if err := db.InsertDataset(meta); err != nil {
		return meta, false, fmt.Errorf("insert dataset: %w", err)
	}
	switch d.Kind {
	case model.KindInteractions:
		err = db.InsertInteractionEvents(d.Hash, d.Interactions)
	case model.KindFeatures:
		err = db.InsertFeatureEvents(d.Hash, d.Features)
	case model.KindDeaths:
		err = db.InsertDeathEvents(d.Hash, d.Deaths)
	case model.KindShop:
		err = db.InsertShopEvents(d.Hash, d.Shop)
	default:
		err = fmt.Errorf("unknown dataset kind %q", d.Kind)
	}
	if err != nil {
		// Leave no half-imported dataset behind; a retry must not hit the cache.
		_ = db.DeleteDataset(d.Hash)
		return meta, false, fmt.Errorf("insert %s events: %w", d.Kind, err)
	}
	return meta, false, nil
}

// Load resolves a hash prefix and reads the dataset's rows back. An empty
// kind accepts any dataset.
func (db *DB) Load(prefix, kind string) (*ingest.Dataset, error) {
	meta, err := db.ResolveDataset(prefix, kind)
	if err != nil {
		return nil, err
	}
	d := &ingest.Dataset{Kind: meta.Kind, Hash: meta.Hash, Name: meta.Name}
	switch meta.Kind {
	case model.KindInteractions:
		d.Interactions, err = db.LoadInteractionEvents(meta.Hash)
	case model.KindFeatures:
		d.Features, err = db.LoadFeatureEvents(meta.Hash)
	case model.KindDeaths:
		d.Deaths, err = db.LoadDeathEvents(meta.Hash)
	case model.KindShop:
		d.Shop, err = db.LoadShopEvents(meta.Hash)
	default:
		return nil, fmt.Errorf("dataset %s has unknown kind %q", short(meta.Hash), meta.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s events: %w", meta.Kind, err)
	}
	return d, nil
}
