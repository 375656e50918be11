package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostdev-ops/pma-simulator/internal/config"
	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/internal/core/metrics"
	"github.com/frostdev-ops/pma-simulator/internal/core/simulator"
	"github.com/frostdev-ops/pma-simulator/internal/database"
	"github.com/frostdev-ops/pma-simulator/internal/database/sqlite"
	"github.com/frostdev-ops/pma-simulator/pkg/logger"
	"github.com/frostdev-ops/pma-simulator/pkg/version"
)

func main() {
	// Initialize logger
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger.Configure(log, cfg.Logging.Level, cfg.Logging.Format)

	log.Infof("Starting PMA Device Simulator %s", version.GetFullVersion())

	// Initialize the event store when persistence is enabled
	var db *sqlx.DB
	var repo *sqlite.EventRepository
	if cfg.Simulator.EventLog.Persist {
		db, err = database.Initialize(cfg.Database)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()

		if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
		repo = sqlite.NewEventRepository(db, log)
	}

	// Metrics collector (nil keeps every recording a no-op)
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Config{
			Enabled: true,
			Prefix:  cfg.Metrics.Prefix,
		}, nil)
	}

	// Environmental simulator
	envInterval := time.Minute
	if d, err := time.ParseDuration(cfg.Environment.UpdateInterval); err == nil && d > 0 {
		envInterval = d
	}
	env := environment.NewSimulator(envInterval, log)

	// Simulator manager
	mgr := simulator.NewManager(simulator.OptionsFromConfig(cfg), env, repo, collector, log)

	// Seed the fleet from configuration
	for _, seed := range cfg.Devices {
		opts := simulator.CreateOptions{
			Brand:    seed.Brand,
			Model:    seed.Model,
			Location: seed.Location,
		}
		if _, err := mgr.CreateDevice(seed.Type, seed.Name, opts); err != nil {
			log.WithError(err).WithField("device_type", seed.Type).Error("Failed to create seed device")
		}
	}

	// Start the environment first so devices see live conditions
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := env.Start(ctx); err != nil {
		log.Fatal("Failed to start environmental simulator:", err)
	}
	if cfg.Environment.InitialScenario != "" {
		if err := env.ApplyScenario(cfg.Environment.InitialScenario); err != nil {
			log.WithError(err).Warn("Failed to apply initial scenario")
		}
	}
	if err := mgr.Start(); err != nil {
		log.Fatal("Failed to start simulator manager:", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down simulator...")

	if err := mgr.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop simulator manager cleanly")
	}
	if err := env.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop environmental simulator cleanly")
	}

	log.Info("Simulator exited")
}
