package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_create_bays.up.sql":   {Data: []byte("CREATE TABLE bays (id TEXT PRIMARY KEY);")},
		"20260101_000000_create_bays.down.sql": {Data: []byte("DROP TABLE bays;")},
		"20260102_000000_add_notes.up.sql":     {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);")},
		"20260102_000000_add_notes.down.sql":   {Data: []byte("DROP TABLE notes;")},
		"README.md":                            {Data: []byte("not a migration")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"bays", "notes"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "notes") {
		t.Error("notes should be dropped")
	}
	if !tableExists(t, db, "bays") {
		t.Error("bays should remain")
	}

	_, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "add_notes" {
		t.Errorf("pending = %+v, want add_notes", pending)
	}
}

func TestMigrateDownNothingApplied(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateDown(context.Background(), testMigrations()); err != nil {
		t.Errorf("MigrateDown() on empty database error = %v", err)
	}
}

func TestMigrateFailureStopsAtBrokenMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE ((")}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() should fail on broken SQL")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 2 and 1", len(applied), len(pending))
	}
}

func TestLoadMigrations(t *testing.T) {
	t.Run("nil fs", func(t *testing.T) {
		got, err := LoadMigrations(nil)
		if err != nil || len(got) != 0 {
			t.Errorf("LoadMigrations(nil) = %v, %v", got, err)
		}
	})

	t.Run("sorted with down sql", func(t *testing.T) {
		got, err := LoadMigrations(testMigrations())
		if err != nil {
			t.Fatalf("LoadMigrations() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Version != "20260101_000000" || got[1].Version != "20260102_000000" {
			t.Errorf("order = %s, %s", got[0].Version, got[1].Version)
		}
		if got[0].DownSQL == "" {
			t.Error("DownSQL not loaded")
		}
	})

	t.Run("down without up", func(t *testing.T) {
		fsys := fstest.MapFS{"20260101_000000_orphan.down.sql": {Data: []byte("SELECT 1;")}}
		if _, err := LoadMigrations(fsys); err == nil {
			t.Error("LoadMigrations() should reject a down file without an up file")
		}
	})
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		up       bool
		ok       bool
	}{
		{"20261016_120000_last_shot.up.sql", "20261016_120000", "last_shot", true, true},
		{"20261016_120000_last_shot.down.sql", "20261016_120000", "last_shot", false, true},
		{"20261016_120000.up.sql", "20261016_120000", "20261016_120000", true, true},
		{"20261016_120000_x.sql", "", "", false, false},
		{"20261016.up.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if version != tt.version || name != tt.name || up != tt.up {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", version, name, up, tt.version, tt.name, tt.up)
			}
		})
	}
}
