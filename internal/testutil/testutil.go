package testutil

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	"github.com/pratik-mahalle/ratewatch/internal/repository/postgres"
	"github.com/pratik-mahalle/ratewatch/migrations"
)

// Epoch is the start time of virtual clocks in tests
var Epoch = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

// NewClock returns a manual clock set to Epoch
func NewClock() *clock.Manual {
	return clock.NewManual(Epoch)
}

// NewTestDB creates an in-memory SQLite database with the schema applied
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	fsys, err := migrations.For(postgres.DriverSQLite)
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if _, err := postgres.RunMigrations(db.DB, fsys, nil); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sqlx.DB) {
	if db != nil {
		db.Close()
	}
}
