package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/staffline-lab/staffline/internal/core/config"
	"github.com/staffline-lab/staffline/internal/core/storage/postgres"
	"github.com/staffline-lab/staffline/internal/hr"
	"github.com/staffline-lab/staffline/internal/migrations"
	"github.com/staffline-lab/staffline/internal/monitor"
	"github.com/staffline-lab/staffline/internal/server"
	"github.com/staffline-lab/staffline/internal/timeline"
)

func main() {
	configPath := flag.String("config", "staffline.yaml", "Path to configuration file")
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

	// 2. Initialize Storage (PostgreSQL)
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

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 2.2. Verify the timeline table is reachable before serving traffic.
	if err := dbAdapter.ValidateSchema(context.Background()); err != nil {
		slog.Error("Schema validation failed", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Timeline Service (query + correction API)
	timelineSvc := timeline.NewService(dbAdapter, cfg.Server.MaxBodySizeMB)

	// 4. Initialize Position Monitor
	var positionMonitor *monitor.Scheduler
	if cfg.Monitor.Enabled {
		hrClient, err := hr.NewClient(cfg.HR.BaseURL, cfg.HR.APIKey, cfg.HR.HTTPTimeout())
		if err != nil {
			slog.Error("Failed to initialize HR client", "error", err)
			os.Exit(1)
		}
		positionMonitor = monitor.NewScheduler(
			cfg.Monitor.MonitorInterval(),
			hrClient,
			timelineSvc,
			cfg.Monitor.StartDate(),
		)
		slog.Info("Position monitor initialized",
			"interval", cfg.Monitor.MonitorInterval(),
			"default_start_date", cfg.Monitor.DefaultStartDate,
		)
	}

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter, cfg.Server.Mode)
	timelineSvc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if positionMonitor != nil {
		go func() {
			if err := positionMonitor.Start(ctx); err != nil {
				slog.Error("Position monitor stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Position monitor disabled by config")
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

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
