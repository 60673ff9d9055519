package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending
//   go run ./cmd/migrate -cmd status
//   go run ./cmd/migrate -cmd down  # roll back one step

import (
	"context"
	"flag"
	"os"

	"sst-backend/internal/shared/config"
	"sst-backend/internal/shared/storage/db"
	"sst-backend/internal/shared/telemetry"
)

func main() {
	command := flag.String("cmd", "up", "migration command: up, down or status")
	flag.Parse()

	cfg := config.Load()
	telemetry.Configure(cfg.Env)
	defer telemetry.Sync()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, *command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": *command, "error": err})
		os.Exit(1)
	}
}
