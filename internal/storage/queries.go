package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// importedAtLayout is fixed-width so imported_at sorts lexicographically.
const importedAtLayout = "2006-01-02T15:04:05.000000000Z"

// eventTables lists the per-kind row tables, keyed by dataset kind.
var eventTables = map[string]string{
	model.KindInteractions: "interaction_events",
	model.KindFeatures:     "feature_events",
	model.KindDeaths:       "death_events",
	model.KindShop:         "shop_events",
}

// DatasetExists returns true if a dataset with the given content hash is already stored.
func (db *DB) DatasetExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM datasets WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertDataset inserts a dataset record. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertDataset(d model.Dataset) error {
	if d.ImportedAt.IsZero() {
		d.ImportedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO datasets(hash, kind, name, rows, imported_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.Hash, d.Kind, d.Name, d.Rows, d.ImportedAt.UTC().Format(importedAtLayout),
	)
	return err
}

// InsertInteractionEvents bulk-inserts kill rows in a transaction.
func (db *DB) InsertInteractionEvents(hash string, events []model.InteractionEvent) error {
	cols := []string{"actor_id", "target_id", "server_id", "item_id"}
	return db.insertRows("interaction_events", cols, hash, len(events), func(i int) ([]any, error) {
		e := events[i]
		return []any{e.ActorID, e.TargetID, e.ServerID, e.ItemID}, nil
	})
}

// InsertFeatureEvents bulk-inserts long-form counter rows in a transaction.
func (db *DB) InsertFeatureEvents(hash string, events []model.FeatureEvent) error {
	cols := []string{"subject", "category", "value"}
	return db.insertRows("feature_events", cols, hash, len(events), func(i int) ([]any, error) {
		e := events[i]
		return []any{e.Subject, e.Category, e.Value}, nil
	})
}

// InsertDeathEvents bulk-inserts death location rows in a transaction.
func (db *DB) InsertDeathEvents(hash string, events []model.DeathEvent) error {
	cols := []string{"loc_x", "loc_y", "loc_z", "cause", "carriage_id", "server_id", "time_ms"}
	return db.insertRows("death_events", cols, hash, len(events), func(i int) ([]any, error) {
		e := events[i]
		return []any{e.X, e.Y, e.Z, e.Cause, e.CarriageID, e.ServerID, timeMillis(e.Time, e.HasTime)}, nil
	})
}

// InsertShopEvents bulk-inserts shop rows in a transaction. Knowledge cells
// are stored as a JSON array.
func (db *DB) InsertShopEvents(hash string, events []model.ShopEvent) error {
	cols := []string{"distinct_id", "knowledge", "time_ms"}
	return db.insertRows("shop_events", cols, hash, len(events), func(i int) ([]any, error) {
		e := events[i]
		knowledge, err := json.Marshal(e.Knowledge)
		if err != nil {
			return nil, fmt.Errorf("encode knowledge row %d: %w", i, err)
		}
		return []any{e.DistinctID, string(knowledge), timeMillis(e.Time, e.HasTime)}, nil
	})
}

// ListDatasets returns all stored datasets, newest import first.
func (db *DB) ListDatasets() ([]model.Dataset, error) {
	rows, err := db.conn.Query(`
		SELECT hash, kind, name, rows, imported_at
		FROM datasets ORDER BY imported_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDatasetByPrefix finds the first dataset whose hash starts with the given
// prefix. It returns nil, nil when nothing matches.
func (db *DB) GetDatasetByPrefix(prefix string) (*model.Dataset, error) {
	row := db.conn.QueryRow(`
		SELECT hash, kind, name, rows, imported_at
		FROM datasets WHERE hash LIKE ? ORDER BY imported_at DESC LIMIT 1`, prefix+"%")
	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ResolveDataset is GetDatasetByPrefix that also checks the kind. An empty
// kind accepts any dataset. A miss wraps ErrNotFound.
func (db *DB) ResolveDataset(prefix, kind string) (*model.Dataset, error) {
	d, err := db.GetDatasetByPrefix(prefix)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
	}
	if kind != "" && d.Kind != kind {
		return nil, fmt.Errorf("dataset %s is %s data, not %s", short(d.Hash), d.Kind, kind)
	}
	return d, nil
}

// DeleteDataset removes a dataset and all its rows.
func (db *DB) DeleteDataset(hash string) error {
	return db.withTx(func(tx *sql.Tx) error {
		for _, table := range eventTables {
			if _, err := tx.Exec("DELETE FROM "+table+" WHERE dataset_hash = ?", hash); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res, err := tx.Exec("DELETE FROM datasets WHERE hash = ?", hash)
		if err != nil {
			return fmt.Errorf("delete dataset: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("hash %s: %w", short(hash), ErrNotFound)
		}
		return nil
	})
}

// LoadInteractionEvents returns a dataset's kill rows in import order.
func (db *DB) LoadInteractionEvents(hash string) ([]model.InteractionEvent, error) {
	rows, err := db.conn.Query(`
		SELECT actor_id, target_id, server_id, item_id
		FROM interaction_events WHERE dataset_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InteractionEvent
	for rows.Next() {
		var e model.InteractionEvent
		if err := rows.Scan(&e.ActorID, &e.TargetID, &e.ServerID, &e.ItemID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadFeatureEvents returns a dataset's counter rows in import order.
func (db *DB) LoadFeatureEvents(hash string) ([]model.FeatureEvent, error) {
	rows, err := db.conn.Query(`
		SELECT subject, category, value
		FROM feature_events WHERE dataset_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FeatureEvent
	for rows.Next() {
		var e model.FeatureEvent
		if err := rows.Scan(&e.Subject, &e.Category, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadDeathEvents returns a dataset's death rows in import order.
func (db *DB) LoadDeathEvents(hash string) ([]model.DeathEvent, error) {
	rows, err := db.conn.Query(`
		SELECT loc_x, loc_y, loc_z, cause, carriage_id, server_id, time_ms
		FROM death_events WHERE dataset_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeathEvent
	for rows.Next() {
		var e model.DeathEvent
		var ms sql.NullInt64
		if err := rows.Scan(&e.X, &e.Y, &e.Z, &e.Cause, &e.CarriageID, &e.ServerID, &ms); err != nil {
			return nil, err
		}
		e.Time, e.HasTime = fromMillis(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadShopEvents returns a dataset's shop rows in import order.
func (db *DB) LoadShopEvents(hash string) ([]model.ShopEvent, error) {
	rows, err := db.conn.Query(`
		SELECT distinct_id, knowledge, time_ms
		FROM shop_events WHERE dataset_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShopEvent
	for rows.Next() {
		var e model.ShopEvent
		var knowledge string
		var ms sql.NullInt64
		if err := rows.Scan(&e.DistinctID, &knowledge, &ms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(knowledge), &e.Knowledge); err != nil {
			return nil, fmt.Errorf("decode knowledge: %w", err)
		}
		e.Time, e.HasTime = fromMillis(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (model.Dataset, error) {
	var d model.Dataset
	var importedAt string
	if err := s.Scan(&d.Hash, &d.Kind, &d.Name, &d.Rows, &importedAt); err != nil {
		return d, err
	}
	t, err := time.Parse(importedAtLayout, importedAt)
	if err != nil {
		return d, fmt.Errorf("parse imported_at %q: %w", importedAt, err)
	}
	d.ImportedAt = t
	return d, nil
}

func timeMillis(t time.Time, ok bool) any {
	if !ok {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(ms sql.NullInt64) (time.Time, bool) {
	if !ms.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(ms.Int64).UTC(), true
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
