// Package main runs the combat simulation server: it loads content and boss
// scripts, places the startup roster, restores saved state, and ticks the
// world until signalled.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/content"
	"github.com/cory-johannsen/yomi/internal/debugapi"
	"github.com/cory-johannsen/yomi/internal/game/dice"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/gameserver"
	"github.com/cory-johannsen/yomi/internal/observability"
	"github.com/cory-johannsen/yomi/internal/scripting"
	"github.com/cory-johannsen/yomi/internal/server"
	"github.com/cory-johannsen/yomi/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	base, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer base.Sync() //nolint:errcheck
	logger := observability.ForServer(base, cfg.Server)

	logger.Info("starting combat server",
		zap.Duration("tick_interval", cfg.Simulation.TickInterval),
		zap.Bool("persistent", cfg.Server.Persistent()),
	)

	// Content
	contentStart := time.Now()
	catalog, err := content.Load(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("weapons", catalog.Weapons.Len()),
		zap.Int("bosses", catalog.Bosses.Len()),
		zap.Int("enemies", catalog.Enemies.Len()),
		zap.Int("foods", catalog.Foods.Len()),
		zap.Int("loot_tables", catalog.Loot.Len()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), observability.Component(logger, "dice"))
	world := sim.New(gameserver.SimConfig(cfg), catalog, roller, observability.Component(logger, "sim"))

	// Boss scripts
	var scriptMgr *scripting.Manager
	if dir := cfg.Scripting.ScriptDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			scriptStart := time.Now()
			scriptMgr = scripting.NewManager(roller, observability.Component(logger, "scripting"))
			n, err := scriptMgr.LoadAll(dir, cfg.Scripting.InstructionLimit)
			if err != nil {
				logger.Fatal("loading boss scripts", zap.String("dir", dir), zap.Error(err))
			}
			world.BindScripts(scriptMgr)
			logger.Info("boss scripts loaded",
				zap.Int("zones", n),
				zap.Duration("elapsed", time.Since(scriptStart)),
			)
		} else {
			logger.Warn("script dir not found, scripting disabled", zap.String("dir", dir))
		}
	}

	// Startup roster
	var bossIDs []string
	if path := cfg.Content.LayoutFile; path != "" {
		layout, err := gameserver.LoadLayout(path)
		if err != nil {
			logger.Fatal("loading layout", zap.Error(err))
		}
		if err := layout.Populate(world); err != nil {
			logger.Fatal("placing layout", zap.Error(err))
		}
		for _, b := range layout.Bosses {
			bossIDs = append(bossIDs, b.ID)
		}
		logger.Info("layout placed",
			zap.Int("bosses", len(layout.Bosses)),
			zap.Int("enemies", len(layout.Enemies)),
			zap.Int("companions", len(layout.Companions)),
		)
	}

	// Persistence
	var store gameserver.StateStore
	var db *postgres.Store
	if cfg.Server.Persistent() {
		dbStart := time.Now()
		db, err = postgres.Open(ctx, cfg.Database, observability.Component(logger, "postgres"))
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		store = db.Snapshots()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	}

	ticks := gameserver.NewTickManager(cfg.Simulation.TickInterval, observability.Component(logger, "tick"))
	svc := gameserver.NewService(world, ticks, store, cfg.Simulation.SnapshotInterval, observability.Component(logger, "gameserver"))

	restored, err := svc.RestoreBosses(ctx, bossIDs)
	if err != nil {
		logger.Fatal("restoring bosses", zap.Error(err))
	}
	if restored > 0 {
		logger.Info("boss state restored", zap.Int("bosses", restored))
	}

	lc := server.NewLifecycle(logger)
	lc.Add("simulation", svc)

	if cfg.Content.Watch {
		watcher, err := content.NewWatcher(observability.Component(logger, "content"), watchDirs(cfg)...)
		if err != nil {
			logger.Fatal("starting content watcher", zap.Error(err))
		}
		defer watcher.Close() //nolint:errcheck
		reloader := content.NewReloader(cfg.Content, observability.Component(logger, "content"), world.SetCatalog)
		lc.Add("content-watcher", server.NewContextService(func(ctx context.Context) error {
			watcher.Run(ctx, func(path string) {
				if content.IsScriptFile(path) && scriptMgr != nil {
					if _, err := scriptMgr.ReloadFile(path); err != nil {
						logger.Warn("script reload rejected", zap.String("path", path), zap.Error(err))
					}
					return
				}
				reloader.OnChange(path)
			})
			return nil
		}))
	}

	if cfg.Debug.Enabled {
		hub := debugapi.NewHub()
		world.Subscribe(hub.Publish)
		api := debugapi.NewServer(cfg.Debug.Addr(), world, svc, hub, observability.Component(logger, "debugapi"))
		if db != nil {
			api.SetHealthCheck(db.Ping)
		}
		lc.Add("debug-api", api)
	}

	logger.Info("combat server initialized", zap.Duration("startup", time.Since(start)))

	if err := lc.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
	if scriptMgr != nil {
		scriptMgr.Close()
	}
}

// watchDirs lists the definition directories plus every boss script zone.
func watchDirs(cfg config.Config) []string {
	dirs := []string{
		cfg.Content.WeaponsDir,
		cfg.Content.BossesDir,
		cfg.Content.EnemiesDir,
		cfg.Content.FoodsDir,
		cfg.Content.LootDir,
	}
	root := cfg.Scripting.ScriptDir
	if root == "" {
		return dirs
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return dirs
	}
	dirs = append(dirs, root)
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs
}
