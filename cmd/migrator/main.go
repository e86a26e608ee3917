package main

import (
	"flag"
	"log/slog"
	"os"

	"orderChat/internal/config"
	"orderChat/internal/pkg/logger/sl"
	"orderChat/internal/repository/postgres"
	"orderChat/internal/repository/postgres/migrations"
)

func main() {
	var (
		direction string
		steps     int
	)

	flag.StringVar(&direction, "direction", "up", "up applies all pending migrations, down reverts -steps migrations")
	flag.IntVar(&steps, "steps", 1, "number of migrations to revert with -direction=down")

	// config.MustLoad parses the command line, including the flags above.
	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log = log.With(
		slog.String("db", cfg.Postgres.DBName),
		slog.String("direction", direction),
	)

	if cfg.Storage != config.StoragePostgres {
		log.Error("migrations require postgres storage", slog.String("storage", cfg.Storage))
		os.Exit(1)
	}

	var err error

	switch direction {
	case "up":
		err = postgres.RunMigrations(log, cfg.Postgres.ConnString(), migrations.FS)
	case "down":
		err = postgres.RollbackMigrations(log, cfg.Postgres.ConnString(), migrations.FS, steps)
	default:
		log.Error("unknown direction")
		os.Exit(2)
	}

	if err != nil {
		log.Error("migration failed", sl.Err(err))
		os.Exit(1)
	}
}
