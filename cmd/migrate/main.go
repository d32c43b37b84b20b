package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate down       # roll back the latest migration
//   go run ./cmd/migrate status

import (
	"context"
	"log"
	"os"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init("butter-chat-migrate", cfg.LogLevel)
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	case "version":
		var version int64
		if version, err = db.MigrationVersion(ctx, sqlDB); err == nil {
			log.Printf("schema version %d", version)
		}
	default:
		log.Printf("unknown command %q (want up, down, status or version)", command)
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s: %v", command, err)
		os.Exit(1)
	}
}
