package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yln-platform/mentorship-backend/api/routes"
	"github.com/yln-platform/mentorship-backend/internal/auth"
	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/internal/mentees"
	"github.com/yln-platform/mentorship-backend/internal/mentors"
	"github.com/yln-platform/mentorship-backend/internal/mentorships"
	"github.com/yln-platform/mentorship-backend/internal/sessions"
	"github.com/yln-platform/mentorship-backend/internal/sheetmirror"
	syncsvc "github.com/yln-platform/mentorship-backend/internal/sync"
	"github.com/yln-platform/mentorship-backend/internal/users"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/db"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/mailer"
	"github.com/yln-platform/mentorship-backend/pkg/metrics"
	"github.com/yln-platform/mentorship-backend/pkg/migrate"
	"github.com/yln-platform/mentorship-backend/pkg/redis"
	"github.com/yln-platform/mentorship-backend/pkg/sheets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	var mirror dualwrite.Mirror
	var sheetsPinger routes.Pinger
	if cfg.Sheets.Enabled {
		sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap sheets", err)
			os.Exit(1)
		}
		sheetsPinger = sheetsClient

		mirror, err = sheetmirror.New(sheetsClient)
		if err != nil {
			logg.Error(ctx, "failed to build sheet mirror", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "sheets mirroring disabled, running on the local store only")
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

	userService, err := users.NewService(users.ServiceParams{
		Store:          store,
		PasswordConfig: cfg.Password,
		AdminConfig:    cfg.Admin,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	if err := userService.SeedSuperAdmin(ctx); err != nil {
		logg.Error(ctx, "failed to seed super admin", err)
		os.Exit(1)
	}

	sessionService, err := sessions.NewService(sessions.ServiceParams{
		Store:         store,
		SessionConfig: cfg.Session,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sessions service", err)
		os.Exit(1)
	}

	tokenRepo, err := users.NewTokenRepository(dbClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to create token repository", err)
		os.Exit(1)
	}

	mail := mailer.New(cfg.SMTP, logg)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userService,
		Sessions:       sessionService,
		Tokens:         tokenRepo,
		Mailer:         mail,
		PasswordConfig: cfg.Password,
		SessionConfig:  cfg.Session,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	mentorService, err := mentors.NewService(mentors.ServiceParams{Store: store})
	if err != nil {
		logg.Error(ctx, "failed to create mentors service", err)
		os.Exit(1)
	}
	menteeService, err := mentees.NewService(mentees.ServiceParams{Store: store})
	if err != nil {
		logg.Error(ctx, "failed to create mentees service", err)
		os.Exit(1)
	}
	pairingService, err := mentorships.NewService(mentorships.ServiceParams{
		Store:    store,
		Notifier: mail,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create mentorships service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	syncService, err := syncsvc.NewService(syncsvc.ServiceParams{
		Store:      store,
		Metrics:    syncMetrics,
		Logger:     logg,
		SyncConfig: cfg.Sync,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync service", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.DrainOnBoot && mirror != nil {
		go syncService.Sweep(ctx)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       dbClient,
		RedisClient:    redisClient,
		SheetsPinger:   sheetsPinger,
		Store:          store,
		AuthService:    authService,
		UserService:    userService,
		SessionService: sessionService,
		MentorService:  mentorService,
		MenteeService:  menteeService,
		PairingService: pairingService,
		SyncService:    syncService,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	bootCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(bootCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(context.Background(), "api server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(bootCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
