package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/database"
	"github.com/Smart123s/FastLogin/internal/migration"
	"github.com/Smart123s/FastLogin/internal/profile"
	"github.com/Smart123s/FastLogin/internal/server"
)

func main() {
	command := flag.String("command", "up", "migration command (up/status)")
	flag.Parse()

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", "development")
	}

	// Load config
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := server.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	dialect, err := migration.DialectFor(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}

	db, err := sql.Open(dialect.Name(), database.DSN(&cfg.Database))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	gormDB, err := database.Wrap(&cfg.Database, db, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	ctx := context.Background()
	migrator := migration.NewMigrator(gormDB, dialect, logger)
	if err := migrator.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to create migration ledger: %v", err)
	}

	switch *command {
	case "up":
		applied, err := migrator.EnsureCurrent(ctx, profile.Schema)
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Printf("Successfully ran %d migrations", applied)

	case "status":
		statuses, err := migrator.Status(ctx, profile.Schema)
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		for _, s := range statuses {
			logger.Info("table status",
				zap.String("table", s.Name),
				zap.Int("current", s.Current),
				zap.Int("required", s.Required))
		}

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}
