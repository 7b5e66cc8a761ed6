package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ms-restaurant/internal/config"
	"ms-restaurant/internal/database"
	"ms-restaurant/internal/database/migrations"
	"ms-restaurant/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	down := flag.Bool("down", false, "roll every migration back instead of applying them")
	version := flag.Uint("version", 0, "migrate to this schema version, 0 means latest")
	seed := flag.Bool("seed", false, "insert demo menu items, tables and a customer after migrating")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Close()

	if err := run(cfg, log, *down, *version, *seed); err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, down bool, version uint, seed bool) error {
	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{AutoMigrate: true, TargetVersion: version}, log)
	defer runner.Close()

	if down {
		if err := runner.MigrateDown(); err != nil {
			return err
		}
		log.Info("MIGRATE", "All migrations rolled back")
		return nil
	}

	if err := runner.RunMigrations(); err != nil {
		return err
	}
	if seed {
		if err := database.SeedDemoData(ctx, bunDB, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}
	return nil
}
