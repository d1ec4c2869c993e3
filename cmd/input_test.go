package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pable/go-telemetry-metrics/internal/config"
	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/schema"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "metrics.db")
	cfg = config.New()
	ids = identity.New(nil)
	logBase = zap.NewNop()
	logger = logBase.Sugar()
	return dir
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadInputs_FilesAndStored(t *testing.T) {
	dir := setupTestEnv(t)
	a := writeCSV(t, dir, "a.csv", "distinct_id,target_player_id,server_id,item_id\nA,B,s1,rifle\n")
	b := writeCSV(t, dir, "b.csv", "distinct_id,target_player_id,server_id,item_id\nB,A,s1,knife\nA,B,s2,rifle\n")
	bad := writeCSV(t, dir, "bad.csv", "distinct_id\nA\n")

	stored, err := decodeFile(b, model.KindInteractions)
	if err != nil {
		t.Fatalf("decodeFile: %v", err)
	}
	db, err := openStore()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.Import(stored); err != nil {
		t.Fatalf("Import: %v", err)
	}
	db.Close()

	d, err := loadInputs(context.Background(), model.KindInteractions, []string{a, bad}, []string{stored.Hash[:10]})
	if err != nil {
		t.Fatalf("loadInputs: %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("expected 3 merged rows, got %d", d.Len())
	}
	if d.Interactions[0].ItemID != "rifle" || d.Interactions[1].ItemID != "knife" {
		t.Errorf("files should precede stored datasets in order: %+v", d.Interactions)
	}
	if !strings.Contains(d.Name, "a.csv") || !strings.Contains(d.Name, "b.csv") {
		t.Errorf("merged name: %q", d.Name)
	}
}

func TestLoadInputs_Errors(t *testing.T) {
	dir := setupTestEnv(t)
	bad := writeCSV(t, dir, "bad.csv", "distinct_id\nA\n")

	if _, err := loadInputs(context.Background(), model.KindInteractions, nil, nil); err == nil {
		t.Error("expected error without inputs")
	}
	if _, err := loadInputs(context.Background(), model.KindInteractions, []string{bad}, nil); !errors.Is(err, schema.ErrSchema) {
		t.Errorf("all inputs invalid: expected ErrSchema, got %v", err)
	}
	if _, err := loadInputs(context.Background(), model.KindInteractions, []string{filepath.Join(dir, "missing.csv")}, nil); err == nil {
		t.Error("expected error for missing file")
	}

	db, err := openStore()
	if err != nil {
		t.Fatal(err)
	}
	db.Close()
	if _, err := loadInputs(context.Background(), model.KindInteractions, nil, []string{"ffff"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown prefix: expected ErrNotFound, got %v", err)
	}
}

func TestBuildExport(t *testing.T) {
	setupTestEnv(t)
	d := &ingest.Dataset{
		Kind: model.KindShop,
		Hash: "abc",
		Name: "shop.csv",
		Shop: []model.ShopEvent{{Knowledge: []string{"Exchange.Blueprint.Buildable.RecordPlayer"}}},
	}
	doc, err := buildExport(d)
	if err != nil {
		t.Fatalf("buildExport: %v", err)
	}
	if doc.Dataset.Rows != 1 || doc.Dataset.Kind != model.KindShop {
		t.Errorf("dataset meta: %+v", doc.Dataset)
	}
	if _, err := buildExport(&ingest.Dataset{Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
