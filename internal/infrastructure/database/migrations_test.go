package database

import (
	"context"
	"testing"
)

// TestMigrate verifies the embedded migrations apply cleanly.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The initial migration creates the history table.
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='zone_state_history'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("history table not created: %v", err)
	}

	// Re-running is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending migrations = %d, want 0", len(pending))
	}
	if len(applied) == 0 {
		t.Fatal("no applied migrations recorded")
	}
	if applied[0].Version != "0001" {
		t.Errorf("first applied version = %q, want 0001", applied[0].Version)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}
}

// TestMigrateDown verifies rollback of the most recent migration.
func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='zone_state_history'",
	).Scan(&name)
	if err == nil {
		t.Error("history table still exists after rollback")
	}

	// Rolling back an empty database is a no-op.
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() on empty database error = %v", err)
	}
}

// TestLoadMigrations verifies the embedded files parse into ordered pairs.
func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations found")
	}

	for i, m := range migrations {
		if m.UpSQL == "" {
			t.Errorf("migration %s has empty up SQL", m.Version)
		}
		if m.DownSQL == "" {
			t.Errorf("migration %s has no down SQL", m.Version)
		}
		if i > 0 && migrations[i-1].Version >= m.Version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].Version, m.Version)
		}
	}

	if migrations[0].Name != "initial" {
		t.Errorf("first migration name = %q, want initial", migrations[0].Name)
	}
}

// TestParseMigrationFilename covers the filename grammar.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{name: "0001_initial.up.sql", wantVersion: "0001", wantUp: true, wantOK: true},
		{name: "0001_initial.down.sql", wantVersion: "0001", wantUp: false, wantOK: true},
		{name: "0002_add_keypad_events.up.sql", wantVersion: "0002", wantUp: true, wantOK: true},
		{name: "README.md", wantOK: false},
		{name: "0003_missing_direction.sql", wantOK: false},
		{name: "noversion.up.sql", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if isUp != tt.wantUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantUp)
			}
		})
	}
}
