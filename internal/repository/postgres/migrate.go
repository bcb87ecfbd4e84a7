package postgres

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
)

// RunMigrations applies pending .sql files from migrationsFS in name order
// and returns how many were applied
func RunMigrations(db *sql.DB, migrationsFS fs.FS, log *logger.Logger) (int, error) {
	// Create migrations tracking table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return 0, err
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	appliedCount := 0
	for _, filename := range migrationFiles {
		if applied[filename] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, filename)
		if err != nil {
			return appliedCount, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return appliedCount, fmt.Errorf("failed to start transaction for %s: %w", filename, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return appliedCount, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		// $1 is understood by both postgres and sqlite
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", filename); err != nil {
			tx.Rollback()
			return appliedCount, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(); err != nil {
			return appliedCount, fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}

		if log != nil {
			log.With("version", filename).Info("Migration applied")
		}
		appliedCount++
	}

	return appliedCount, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
