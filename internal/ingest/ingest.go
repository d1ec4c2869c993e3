// Package ingest reads telemetry CSV exports into typed rows.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/schema"
)

// Table is a fully buffered CSV file.
type Table struct {
	// Hash is the hex SHA-256 of the raw bytes; the idempotency key for imports.
	Hash   string
	Name   string
	Header []string
	Rows   [][]string
}

// ReadFile opens and reads the CSV at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// Read buffers a whole CSV stream, hashing it on the way through. ReadAll
// consumes the source to EOF, so the hash covers every byte.
func Read(r io.Reader) (*Table, error) {
	h := sha256.New()
	cr := csv.NewReader(io.TeeReader(r, h))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Table{
		Hash:   fmt.Sprintf("%x", h.Sum(nil)),
		Header: header,
		Rows:   rows,
	}, nil
}

// cell returns row[i] trimmed, or "" when the row is short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// column returns the index of a canonical column, or -1.
func column(res schema.Result, name string) int {
	if i, ok := res.Column(name); ok {
		return i
	}
	return -1
}

// Interactions decodes a kill log. Rows keep empty ids; the aggregator
// drops them.
func Interactions(t *Table) ([]model.InteractionEvent, error) {
	res := schema.Validate(schema.Interactions, t.Header)
	if err := res.Err(); err != nil {
		return nil, err
	}
	actor, target := column(res, "distinct_id"), column(res, "target_player_id")
	server, item := column(res, "server_id"), column(res, "item_id")

	out := make([]model.InteractionEvent, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, model.InteractionEvent{
			ActorID:  cell(row, actor),
			TargetID: cell(row, target),
			ServerID: cell(row, server),
			ItemID:   cell(row, item),
		})
	}
	return out, nil
}

// Features decodes a long-form (key.0, key.1, value) counter export.
// Rows with an empty value are skipped.
func Features(t *Table) ([]model.FeatureEvent, error) {
	res := schema.Validate(schema.FeatureLog, t.Header)
	if err := res.Err(); err != nil {
		return nil, err
	}
	subj, cat, val := column(res, "distinct_id"), column(res, "event_type"), column(res, "count")

	out := make([]model.FeatureEvent, 0, len(t.Rows))
	for n, row := range t.Rows {
		raw := cell(row, val)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: value %q: %w", n+2, raw, err)
		}
		out = append(out, model.FeatureEvent{
			Subject:  cell(row, subj),
			Category: cell(row, cat),
			Value:    v,
		})
	}
	return out, nil
}

// Deaths decodes a death/placement location export. Rows without
// coordinates are skipped. The optional time column is Unix seconds.
func Deaths(t *Table) ([]model.DeathEvent, error) {
	res := schema.Validate(schema.Deaths, t.Header)
	if err := res.Err(); err != nil {
		return nil, err
	}
	xi, yi, zi := column(res, "loc_x"), column(res, "loc_y"), column(res, "loc_z")
	cause, carriage := column(res, "cause"), column(res, "carriage_id")
	server, ts := column(res, "server_id"), column(res, "time")

	out := make([]model.DeathEvent, 0, len(t.Rows))
	for n, row := range t.Rows {
		if cell(row, xi) == "" || cell(row, yi) == "" || cell(row, zi) == "" {
			continue
		}
		var d model.DeathEvent
		var err error
		if d.X, err = strconv.ParseFloat(cell(row, xi), 64); err != nil {
			return nil, fmt.Errorf("row %d: loc_x: %w", n+2, err)
		}
		if d.Y, err = strconv.ParseFloat(cell(row, yi), 64); err != nil {
			return nil, fmt.Errorf("row %d: loc_y: %w", n+2, err)
		}
		if d.Z, err = strconv.ParseFloat(cell(row, zi), 64); err != nil {
			return nil, fmt.Errorf("row %d: loc_z: %w", n+2, err)
		}
		d.Cause = cell(row, cause)
		d.CarriageID = cell(row, carriage)
		d.ServerID = cell(row, server)
		if raw := cell(row, ts); raw != "" {
			tm, err := ParseUnix(raw, time.Second)
			if err != nil {
				return nil, fmt.Errorf("row %d: time: %w", n+2, err)
			}
			d.Time, d.HasTime = tm, true
		}
		out = append(out, d)
	}
	return out, nil
}

// Shop decodes a shop export, collecting every knowledge_granted.* cell.
// The optional time column is Unix milliseconds.
func Shop(t *Table) ([]model.ShopEvent, error) {
	res := schema.Validate(schema.Shop, t.Header)
	if err := res.Err(); err != nil {
		return nil, err
	}
	knowledge := res.Prefixed["knowledge_granted."]
	id, ts := column(res, "distinct_id"), column(res, "time")

	out := make([]model.ShopEvent, 0, len(t.Rows))
	for n, row := range t.Rows {
		e := model.ShopEvent{DistinctID: cell(row, id)}
		for _, i := range knowledge {
			if v := cell(row, i); v != "" {
				e.Knowledge = append(e.Knowledge, v)
			}
		}
		if raw := cell(row, ts); raw != "" {
			tm, err := ParseUnix(raw, time.Millisecond)
			if err != nil {
				return nil, fmt.Errorf("row %d: time: %w", n+2, err)
			}
			e.Time, e.HasTime = tm, true
		}
		out = append(out, e)
	}
	return out, nil
}

// ParseUnix parses an integer or fractional Unix timestamp expressed in unit.
func ParseUnix(raw string, unit time.Duration) (time.Time, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	nanos := v * float64(unit)
	return time.Unix(0, int64(nanos)).UTC(), nil
}
