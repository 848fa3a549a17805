package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/internal/sheetmirror"
	syncsvc "github.com/yln-platform/mentorship-backend/internal/sync"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/db"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/metrics"
	"github.com/yln-platform/mentorship-backend/pkg/migrate"
	"github.com/yln-platform/mentorship-backend/pkg/sheets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	backfill := flag.Bool("backfill", false, "requeue failed writes and push every local row to the mirror, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	if !cfg.Sheets.Enabled {
		logg.Error(ctx, "sync worker requires sheets mirroring", errors.New("sheets is disabled"))
		os.Exit(1)
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap sheets", err)
		os.Exit(1)
	}

	mirror, err := sheetmirror.New(sheetsClient)
	if err != nil {
		logg.Error(ctx, "failed to build sheet mirror", err)
		os.Exit(1)
	}

	store, err := dualwrite.NewStore(dualwrite.StoreParams{
		Database: dbClient,
		Mirror:   mirror,
		Logger:   logg,
		Sync:     cfg.Sync,
	})
	if err != nil {
		logg.Error(ctx, "failed to build store", err)
		os.Exit(1)
	}

	service, err := syncsvc.NewService(syncsvc.ServiceParams{
		Store:      store,
		Metrics:    metrics.NewSyncMetrics(prometheus.NewRegistry()),
		Logger:     logg,
		SyncConfig: cfg.Sync,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync service", err)
		os.Exit(1)
	}

	if *backfill {
		pushed, err := service.Backfill(ctx)
		if err != nil {
			logg.Error(ctx, "backfill failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "pushed", pushed), "backfill done")
		return
	}

	logg.Info(logg.WithField(ctx, "interval", cfg.Sync.SweepInterval.String()), "starting sync worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "sync worker stopped")
}
