package storage

import (
	"fmt"
	"strings"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// KindTotals summarises the stored datasets of one kind.
type KindTotals struct {
	Kind     string
	Datasets int
	Rows     int
}

// Overview returns dataset and row totals per kind, in model.Kinds order.
// Kinds with nothing stored are reported with zero counts.
func (db *DB) Overview() ([]KindTotals, error) {
	rows, err := db.conn.Query(`
		SELECT kind, COUNT(1), COALESCE(SUM(rows), 0)
		FROM datasets GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKind := make(map[string]KindTotals)
	for rows.Next() {
		var k KindTotals
		if err := rows.Scan(&k.Kind, &k.Datasets, &k.Rows); err != nil {
			return nil, err
		}
		byKind[k.Kind] = k
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]KindTotals, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		k := byKind[kind]
		k.Kind = kind
		out = append(out, k)
	}
	return out, nil
}

// PairCounts aggregates kills per ordered (actor, target) pair across the
// given interaction datasets in SQL. Identity normalization is not applied,
// so callers that need display names must aggregate in Go instead.
func (db *DB) PairCounts(hashes []string) ([]model.DirectedEdgeCount, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(hashes))
	for _, h := range hashes {
		args = append(args, h)
	}

	query := fmt.Sprintf(`
		SELECT actor_id, target_id, COUNT(1)
		FROM interaction_events
		WHERE dataset_hash IN (%s)
		  AND actor_id != '' AND target_id != ''
		GROUP BY actor_id, target_id
		ORDER BY actor_id, target_id`,
		placeholders(len(hashes)))

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DirectedEdgeCount
	for rows.Next() {
		var e model.DirectedEdgeCount
		if err := rows.Scan(&e.From, &e.To, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ServerKillCounts returns kills per server across the given datasets, busiest first.
func (db *DB) ServerKillCounts(hashes []string) ([]model.CountEntry, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(hashes))
	for _, h := range hashes {
		args = append(args, h)
	}

	query := fmt.Sprintf(`
		SELECT server_id, COUNT(1)
		FROM interaction_events
		WHERE dataset_hash IN (%s) AND server_id != ''
		GROUP BY server_id
		ORDER BY COUNT(1) DESC, server_id`,
		placeholders(len(hashes)))

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CountEntry
	for rows.Next() {
		var c model.CountEntry
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// placeholders returns a comma-separated string of n "?" for SQL IN clauses,
// e.g. placeholders(3) → "?,?,?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
