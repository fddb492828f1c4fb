// Command migrate applies the goose migrations for the audit tables
// (published events, approvals, moderation actions) to ClickHouse.
//
// Usage: migrate [up|down|status|version|create <name>]
package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const migrationsDir = "./migrations"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil {
		sugar.Info("No .env file found, relying on the environment")
	}

	db, err := sql.Open("clickhouse", dsnFromEnv())
	if err != nil {
		sugar.Fatalw("Failed to open ClickHouse connection", "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		sugar.Fatalw("Failed to ping ClickHouse", "error", err)
	}

	if err := goose.SetDialect("clickhouse"); err != nil {
		sugar.Fatalw("Failed to set goose dialect", "error", err)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	sugar.Infow("Running migration command", "command", command)

	switch command {
	case "up":
		if err := goose.Up(db, migrationsDir); err != nil {
			sugar.Fatalw("Migration failed", "error", err)
		}
		sugar.Info("Audit tables are up to date")
	case "down":
		if err := goose.Down(db, migrationsDir); err != nil {
			sugar.Fatalw("Rollback failed", "error", err)
		}
		sugar.Info("Rolled back one migration")
	case "status":
		if err := goose.Status(db, migrationsDir); err != nil {
			sugar.Fatalw("Failed to read migration status", "error", err)
		}
	case "version":
		version, err := goose.GetDBVersion(db)
		if err != nil {
			sugar.Fatalw("Failed to read migration version", "error", err)
		}
		sugar.Infow("Current migration version", "version", version)
	case "create":
		if len(os.Args) < 3 {
			sugar.Fatal("Usage: migrate create <migration_name>")
		}
		if err := goose.Create(db, migrationsDir, os.Args[2], "sql"); err != nil {
			sugar.Fatalw("Failed to create migration", "error", err)
		}
		sugar.Infow("Created migration", "name", os.Args[2])
	default:
		sugar.Fatalw("Unknown command", "command", command,
			"available", "up, down, status, version, create")
	}
}

// dsnFromEnv builds the ClickHouse DSN from the same CLICKHOUSE_* variables
// the bot itself reads.
func dsnFromEnv() string {
	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&max_execution_time=60",
		envOr("CLICKHOUSE_USER", "default"),
		os.Getenv("CLICKHOUSE_PASSWORD"),
		envOr("CLICKHOUSE_HOST", "localhost"),
		envOr("CLICKHOUSE_PORT", "9000"),
		envOr("CLICKHOUSE_DATABASE", "default"),
	)
	if os.Getenv("CLICKHOUSE_USE_TLS") == "true" {
		dsn += "&secure=true"
	}
	return dsn
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
