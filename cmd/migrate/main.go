package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fbos/fieldservice/internal/config"
	"github.com/fbos/fieldservice/internal/repository/postgres"
	"github.com/fbos/fieldservice/migrations"
)

func main() {
	status := flag.Bool("status", false, "list pending migrations without applying them")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	fmt.Printf("Connected to %s database\n", cfg.Database.Driver)

	if *status {
		applied, err := postgres.AppliedMigrations(ctx, db)
		if err != nil {
			// schema_migrations does not exist before the first run
			applied = map[string]bool{}
		}
		pending, err := postgres.PendingMigrations(migrations.FS(), applied)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d applied, %d pending\n", len(applied), len(pending))
		for _, name := range pending {
			fmt.Printf("  pending: %s\n", name)
		}
		return
	}

	done, err := postgres.RunMigrations(ctx, db, migrations.FS())
	for _, name := range done {
		fmt.Printf("✓ Migration %s completed successfully\n", name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	if len(done) == 0 {
		fmt.Println("Database is up to date")
		return
	}
	fmt.Println("\nAll migrations completed successfully!")
}
