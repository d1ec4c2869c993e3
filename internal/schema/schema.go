// Package schema validates CSV headers against the column sets each report needs.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Sentinel errors. Use errors.Is to classify pipeline failures.
var (
	// ErrSchema marks an upload that lacks required columns. It halts the
	// affected report section only.
	ErrSchema = errors.New("schema mismatch")
	// ErrEmptySelection marks a filter combination that matched no rows.
	ErrEmptySelection = errors.New("empty selection")
)

// exportPrefix is prepended to event properties by the analytics export.
const exportPrefix = "properties."

// Schema describes the columns a dataset must and may carry.
type Schema struct {
	Name     string
	Required []string
	Optional []string
	// RequiredPrefixes each need at least one matching column.
	RequiredPrefixes []string
	// Renames maps a source column to its canonical name.
	Renames map[string]string
}

// Result is the outcome of validating a header row.
type Result struct {
	Schema  string
	Present []string
	Missing []string
	// Index maps canonical column name to its position in the header.
	Index map[string]int
	// Prefixed holds the positions of columns matched by RequiredPrefixes.
	Prefixed map[string][]int
}

// OK reports whether every required column was found.
func (r Result) OK() bool { return len(r.Missing) == 0 }

// Err returns a *SchemaError when columns are missing, nil otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &SchemaError{Schema: r.Schema, Missing: r.Missing}
}

// Column returns the header position of a canonical column.
func (r Result) Column(name string) (int, bool) {
	i, ok := r.Index[name]
	return i, ok
}

// SchemaError lists the required columns an upload lacks.
type SchemaError struct {
	Schema  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s data must include: %s", e.Schema, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchema) match any *SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// Canonical trims a header cell and strips the export prefix.
func Canonical(col string) string {
	col = strings.TrimSpace(col)
	col = strings.TrimPrefix(col, "\ufeff")
	return strings.TrimPrefix(col, exportPrefix)
}

// Validate matches header against s.
func Validate(s Schema, header []string) Result {
	res := Result{
		Schema:   s.Name,
		Index:    make(map[string]int, len(header)),
		Prefixed: make(map[string][]int),
	}
	for i, raw := range header {
		name := Canonical(raw)
		if renamed, ok := s.Renames[name]; ok {
			name = renamed
		}
		if _, dup := res.Index[name]; !dup {
			res.Index[name] = i
		}
		for _, p := range s.RequiredPrefixes {
			if strings.HasPrefix(name, p) {
				res.Prefixed[p] = append(res.Prefixed[p], i)
			}
		}
	}

	for _, col := range s.Required {
		canon := col
		if renamed, ok := s.Renames[col]; ok {
			canon = renamed
		}
		if _, ok := res.Index[canon]; ok {
			res.Present = append(res.Present, col)
		} else {
			res.Missing = append(res.Missing, col)
		}
	}
	for _, col := range s.Optional {
		if _, ok := res.Index[col]; ok {
			res.Present = append(res.Present, col)
		}
	}
	for _, p := range s.RequiredPrefixes {
		if len(res.Prefixed[p]) == 0 {
			res.Missing = append(res.Missing, p+"*")
		}
	}
	sort.Strings(res.Missing)
	return res
}

// Built-in schemas, one per dashboard.
var (
	Interactions = Schema{
		Name:     "interaction",
		Required: []string{"distinct_id", "target_player_id", "server_id", "item_id"},
	}

	FeatureLog = Schema{
		Name:     "feature log",
		Required: []string{"key.0", "key.1", "value"},
		Renames: map[string]string{
			"key.0": "distinct_id",
			"key.1": "event_type",
			"value": "count",
		},
	}

	Deaths = Schema{
		Name:     "death location",
		Required: []string{"loc_x", "loc_y", "loc_z", "cause"},
		Optional: []string{"carriage_id", "server_id", "time"},
	}

	Shop = Schema{
		Name:             "shop",
		Optional:         []string{"distinct_id", "time"},
		RequiredPrefixes: []string{"knowledge_granted."},
	}
)

// ForKind returns the schema used by a dataset kind.
func ForKind(kind string) (Schema, bool) {
	switch kind {
	case model.KindInteractions:
		return Interactions, true
	case model.KindFeatures:
		return FeatureLog, true
	case model.KindDeaths:
		return Deaths, true
	case model.KindShop:
		return Shop, true
	default:
		return Schema{}, false
	}
}
