package database

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/compsight/compsight-api/internal/database/migrations"
)

func TestMigrateAppliesSchema(t *testing.T) {
	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Migrate(db, logger); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	applied, err := migrations.Count(db)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if applied == 0 {
		t.Error("no migrations recorded")
	}

	// Migrations run exactly once.
	if err := Migrate(db, logger); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	again, err := migrations.Count(db)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if again != applied {
		t.Errorf("applied count changed on rerun: %d -> %d", applied, again)
	}

	for _, table := range []string{"lookup_cache", "settings"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
