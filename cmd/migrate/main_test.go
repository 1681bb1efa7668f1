package main

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migrations))
	}
	wantNames := []string{
		"create_bars",
		"create_intraday_predictions",
		"create_ssh_users",
		"create_conversation_messages",
	}
	for i, want := range wantNames {
		if migrations[i].Version != int64(i+1) {
			t.Fatalf("expected version %d at position %d, got %d", i+1, i, migrations[i].Version)
		}
		if migrations[i].Name != want {
			t.Fatalf("expected migration %d named %s, got %s", i+1, want, migrations[i].Name)
		}
		if migrations[i].UpSQL == "" || migrations[i].DownSQL == "" {
			t.Fatalf("expected non-empty up/down sql for migration %d", i+1)
		}
	}
	if !strings.Contains(migrations[1].UpSQL, "UNIQUE (symbol, trade_date, reference_hour)") {
		t.Fatal("expected one-prediction-per-slot constraint in predictions migration")
	}
}

func TestLoadMigrationsRejectsBadFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/create_bars.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for filename without version prefix")
	}
}

func TestLoadMigrationsRequiresBothDirections(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0001_create_bars.up.sql": {Data: []byte("CREATE TABLE bars ();")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for missing down migration")
	}
}

func TestLoadMigrationsRejectsEmptyFile(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0001_create_bars.up.sql":   {Data: []byte("  \n")},
		"migrations/0001_create_bars.down.sql": {Data: []byte("DROP TABLE bars;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for empty migration file")
	}
}
