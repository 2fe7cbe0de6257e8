package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pagepulse/pagepulse/internal/analytics"
	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/catalog"
	corecfg "github.com/pagepulse/pagepulse/internal/core/config"
	"github.com/pagepulse/pagepulse/internal/core/storage"
	"github.com/pagepulse/pagepulse/internal/core/storage/memory"
	"github.com/pagepulse/pagepulse/internal/core/storage/postgres"
	"github.com/pagepulse/pagepulse/internal/dashboard"
	"github.com/pagepulse/pagepulse/internal/export"
	"github.com/pagepulse/pagepulse/internal/ingestion"
	"github.com/pagepulse/pagepulse/internal/migrations"
	"github.com/pagepulse/pagepulse/internal/recommend"
	"github.com/pagepulse/pagepulse/internal/server"
)

func main() {
	configPath := flag.String("config", "pagepulse.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	refreshInterval, err := cfg.Cache.Interval()
	if err != nil {
		slog.Error("Invalid refresh interval", "value", cfg.Cache.RefreshInterval, "error", err)
		os.Exit(1)
	}
	defaultTTL, err := cfg.Cache.TTL()
	if err != nil {
		slog.Error("Invalid default TTL", "value", cfg.Cache.DefaultTTL, "error", err)
		os.Exit(1)
	}

	// 2. Initialize the Event Store
	var eventStore storage.EventStore
	var db *sql.DB
	switch cfg.Database.Type {
	case "memory":
		slog.Warn("Using in-memory event store; events are lost on restart")
		eventStore = memory.NewStore()
	default:
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		eventStore = dbAdapter
		db = dbAdapter.DB()
	}

	// 3. Initialize the Content Catalog
	contentCatalog, err := catalog.LoadSeed(cfg.Catalog.SeedPath)
	if err != nil {
		slog.Error("Failed to load catalog seed", "path", cfg.Catalog.SeedPath, "error", err)
		os.Exit(1)
	}

	// 4. Initialize Analytics (aggregator + ranker + cache)
	aggregator := analytics.NewAggregator(eventStore)
	ranker := recommend.NewRanker(contentCatalog)
	aggCache := cache.New()

	// 5. Initialize Services
	ingestionSvc := ingestion.NewService(eventStore, contentCatalog, cfg.Server.MaxBodySizeMB)
	dashboardSvc := dashboard.NewService(aggCache, aggregator, ranker, defaultTTL)
	exporter := export.NewExporter(eventStore)

	// 6. Initialize the Cache Refresher
	refresher := cache.NewRefresher(refreshInterval, cfg.RefreshPlan.Entries, dashboardSvc)
	slog.Info("Cache refresher initialized",
		"interval", refreshInterval,
		"enabled", cfg.Cache.RefreshEnabled,
		"entries", len(cfg.RefreshPlan.Entries),
	)

	// 7. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	dashboardSvc.RegisterRoutes(srv.Engine)
	exporter.RegisterRoutes(srv.Engine)

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Cache.RefreshEnabled && len(cfg.RefreshPlan.Entries) > 0 {
		go func() {
			if err := refresher.Start(ctx); err != nil {
				slog.Error("Refresher stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Cache refresher disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// Give the refresher's final bounded run a moment before exiting.
	time.Sleep(100 * time.Millisecond)
	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
