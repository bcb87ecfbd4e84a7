package main

import (
	"fmt"
	"os"

	"github.com/pratik-mahalle/ratewatch/internal/config"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/repository/postgres"
	"github.com/pratik-mahalle/ratewatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database\n", cfg.Database.Driver)

	migrationsFS, err := migrations.For(cfg.Database.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load migrations: %v\n", err)
		os.Exit(1)
	}

	applied, err := postgres.RunMigrations(db.DB, migrationsFS, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed after %d applied: %v\n", applied, err)
		os.Exit(1)
	}

	if applied == 0 {
		fmt.Println("Database is up to date")
		return
	}
	fmt.Printf("\nApplied %d migration(s) successfully!\n", applied)
}
