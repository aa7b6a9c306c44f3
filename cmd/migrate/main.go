// Package main applies the combat-state schema migrations.
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrationsDir := flag.String("migrations", "migrations", "directory of .sql migrations")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	force := flag.Int("force", -1, "force the recorded version and clear the dirty flag, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = observability.Component(logger, "migrate")

	m, err := migrate.New("file://"+*migrationsDir, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("creating migrator", zap.Error(err))
	}
	defer m.Close()

	if *force >= 0 {
		if err := m.Force(*force); err != nil {
			logger.Fatal("forcing version", zap.Int("version", *force), zap.Error(err))
		}
		logger.Info("version forced", zap.Int("version", *force))
		return
	}

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Fatal("invalid direction, must be 'up' or 'down'", zap.String("direction", *direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("migration failed", zap.Error(err))
	}

	version, dirty, _ := m.Version()
	logger.Info("migration complete",
		zap.String("direction", *direction),
		zap.Bool("changed", !errors.Is(err, migrate.ErrNoChange)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}
