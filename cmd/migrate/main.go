// Command migrate applies, rolls back or reports the goose migrations outside the API process.
//
// Usage: migrate [up|down|status|version]
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/vectradex/internal/config"
	"github.com/BradenHooton/vectradex/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Error("failed to set migration dialect", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		logger.Error("migration command failed", slog.String("command", command), slog.Any("error", err))
		cancel()
		os.Exit(1)
	}

	logger.Info("migration command completed", slog.String("command", command))
}
