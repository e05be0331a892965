package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/oralvis/oralvis/migrations"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/001_scans.sql":   {Data: []byte("CREATE TABLE scans (id TEXT);")},
		"sql/002_indexes.sql": {Data: []byte("CREATE INDEX idx ON scans (id);")},
		"sql/003_notes.sql":   {Data: []byte("ALTER TABLE scans ADD COLUMN notes TEXT;")},
	}

	migrator := NewMigrator(nil, fsys, "sql")
	got, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(got))
	}
	if got[0].Version != 1 || got[0].Name != "001_scans.sql" {
		t.Errorf("unexpected first migration: %+v", got[0])
	}
	if got[0].SQL != "CREATE TABLE scans (id TEXT);" {
		t.Errorf("unexpected SQL content: %s", got[0].SQL)
	}
	if got[2].Version != 3 {
		t.Errorf("expected version 3, got %d", got[2].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_tables.sql": {Data: []byte("SELECT 10;")},
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/005_middle.sql": {Data: []byte("SELECT 5;")},
	}

	got, err := NewMigrator(nil, fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	expectedVersions := []int{1, 2, 5, 10}
	if len(got) != len(expectedVersions) {
		t.Fatalf("expected %d migrations, got %d", len(expectedVersions), len(got))
	}
	for i, expected := range expectedVersions {
		if got[i].Version != expected {
			t.Errorf("migration[%d]: expected version %d, got %d", i, expected, got[i].Version)
		}
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_valid.sql":      {Data: []byte("SELECT 1;")},
		"m/readme.sql":         {Data: []byte("-- no version prefix")},
		"m/notes.txt":          {Data: []byte("not a sql file")},
		"m/abc_invalid.sql":    {Data: []byte("-- non-numeric prefix")},
		"m/002_also_valid.sql": {Data: []byte("SELECT 2;")},
	}

	got, err := NewSQLiteMigrator(nil, fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(got))
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, fstest.MapFS{}, "nope").LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadMigrations_Bundled(t *testing.T) {
	for _, dir := range []string{migrations.PostgresDir, migrations.SQLiteDir} {
		got, err := NewMigrator(nil, migrations.FS, dir).LoadMigrations()
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if len(got) == 0 || got[0].Version != 1 {
			t.Errorf("%s: expected bundled migrations starting at 1, got %+v", dir, got)
		}
	}
}

func TestBuildStatus(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "001_scans.sql"},
		{Version: 2, Name: "002_indexes.sql"},
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	statuses := buildStatus(migs, map[int]time.Time{1: at})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 1 applied at %v, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected migration 2 pending, got %+v", statuses[1])
	}
}

func TestSQLiteMigrator_UpAndStatus(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "oralvis.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()

	migrator := NewSQLiteMigrator(sqlDB, migrations.FS, migrations.SQLiteDir)

	applied, err := migrator.Up(ctx)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if applied == 0 {
		t.Fatal("expected at least one migration to apply")
	}

	again, err := migrator.Up(ctx)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if again != 0 {
		t.Errorf("expected no pending migrations, applied %d", again)
	}

	statuses, err := migrator.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("expected %s to be applied", s.Name)
		}
	}

	var n int
	if err := sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans").Scan(&n); err != nil {
		t.Fatalf("scans table missing: %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if _, err := sqliteDSN(""); err == nil {
		t.Error("expected error for empty path")
	}
	dsn, err := sqliteDSN("/tmp/oralvis.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dsn != "file:///tmp/oralvis.db" {
		t.Errorf("unexpected dsn %s", dsn)
	}
}
