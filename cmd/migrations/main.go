package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollcore/internal/config"
)

// Usage: migrations <name>, e.g. "create_core_tables.down", or "all" to
// apply every up migration in order.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("a migration name is required.")
	}
	migrationName := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.ConnString(
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DB,
	))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if migrationName == "all" {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("Migrations executed successfully.")
		return
	}

	fileContent, err := postgres.MigrationFile(migrationName)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(fileContent)); err != nil {
		log.Fatalf("Failed to execute SQL file: %v", err)
	}

	log.Println("Migration file executed successfully.")
}
