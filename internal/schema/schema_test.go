package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate_InteractionsComplete(t *testing.T) {
	res := Validate(Interactions, []string{"distinct_id", "target_player_id", "server_id", "item_id", "time"})
	if !res.OK() {
		t.Fatalf("expected OK, missing=%v", res.Missing)
	}
	if res.Err() != nil {
		t.Errorf("Err() should be nil when OK, got %v", res.Err())
	}
	if i, ok := res.Column("item_id"); !ok || i != 3 {
		t.Errorf("item_id column: want 3, got %d (ok=%v)", i, ok)
	}
}

func TestValidate_MissingColumns(t *testing.T) {
	res := Validate(Interactions, []string{"distinct_id", "server_id"})
	if res.OK() {
		t.Fatal("expected missing columns")
	}
	want := []string{"item_id", "target_player_id"}
	if !reflect.DeepEqual(res.Missing, want) {
		t.Errorf("Missing: want %v, got %v", want, res.Missing)
	}

	err := res.Err()
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected errors.Is(err, ErrSchema), got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if se.Schema != "interaction" {
		t.Errorf("schema name: want interaction, got %q", se.Schema)
	}
}

func TestValidate_StripsExportPrefix(t *testing.T) {
	header := []string{"properties.loc_x", "properties.loc_y", " properties.loc_z ", "properties.cause", "properties.carriage_id"}
	res := Validate(Deaths, header)
	if !res.OK() {
		t.Fatalf("expected OK after prefix stripping, missing=%v", res.Missing)
	}
	if _, ok := res.Column("carriage_id"); !ok {
		t.Error("optional carriage_id should be indexed")
	}
	if _, ok := res.Column("server_id"); ok {
		t.Error("server_id was not in header and should not be indexed")
	}
}

func TestValidate_FeatureLogRenames(t *testing.T) {
	res := Validate(FeatureLog, []string{"key.0", "key.1", "value"})
	if !res.OK() {
		t.Fatalf("expected OK, missing=%v", res.Missing)
	}
	for col, want := range map[string]int{"distinct_id": 0, "event_type": 1, "count": 2} {
		if got, ok := res.Column(col); !ok || got != want {
			t.Errorf("column %s: want %d, got %d (ok=%v)", col, want, got, ok)
		}
	}

	// Already-renamed exports validate too.
	res = Validate(FeatureLog, []string{"distinct_id", "event_type", "count"})
	if !res.OK() {
		t.Errorf("canonical header should validate, missing=%v", res.Missing)
	}
}

func TestValidate_RequiredPrefix(t *testing.T) {
	res := Validate(Shop, []string{"distinct_id", "time"})
	if res.OK() {
		t.Fatal("shop export without knowledge columns should fail")
	}
	if res.Missing[0] != "knowledge_granted.*" {
		t.Errorf("unexpected missing list %v", res.Missing)
	}

	res = Validate(Shop, []string{"properties.knowledge_granted.0", "distinct_id", "properties.knowledge_granted.1"})
	if !res.OK() {
		t.Fatalf("expected OK, missing=%v", res.Missing)
	}
	if got := res.Prefixed["knowledge_granted."]; !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("prefixed columns: want [0 2], got %v", got)
	}
}

func TestForKind(t *testing.T) {
	for _, kind := range []string{"interactions", "features", "deaths", "shop"} {
		if _, ok := ForKind(kind); !ok {
			t.Errorf("ForKind(%q) should be known", kind)
		}
	}
	if _, ok := ForKind("rounds"); ok {
		t.Error("unknown kind should not resolve")
	}
}
