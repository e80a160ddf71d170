package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donor-bot/internal/blob"
	"donor-bot/internal/cache"
	"donor-bot/internal/config"
	"donor-bot/internal/convo"
	"donor-bot/internal/httpserver"
	"donor-bot/internal/jalali"
	"donor-bot/internal/logging"
	"donor-bot/internal/metrics"
	"donor-bot/internal/repo"
	"donor-bot/internal/report"
	"donor-bot/internal/scheduler"
	"donor-bot/internal/session"
	"donor-bot/internal/tg"
	"donor-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting donor-bot", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var store repo.Store
	if cfg.DatabaseURL != "" {
		store, err = repo.NewPostgres(ctx, cfg.DatabaseURL, logger)
	} else {
		store, err = repo.NewSQLite(ctx, cfg.SQLitePath, logger)
	}
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	if _, err := repo.SeedIfEmpty(ctx, store, cfg.SeedCSVPath, logger); err != nil {
		return fmt.Errorf("seed donors: %w", err)
	}

	clock, err := jalali.NewClock(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("init calendar: %w", err)
	}

	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisClient := cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		sessions = session.NewRedis(redisClient, cfg.SessionTTL)
	} else {
		sessions = session.NewMemory(cfg.SessionTTL)
	}

	blobs, err := blob.NewDir(cfg.BlobDir)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	renderer := &report.Renderer{FontPath: cfg.ReportFontPath}

	tgClient, err := tg.New(tg.Config{
		Token:       cfg.TelegramToken,
		PollTimeout: cfg.PollTimeout,
		Metrics:     metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	engine := convo.New(store, sessions, tgClient, blobs, clock, renderer, metricRegistry, logger, convo.Config{
		AdminChatID: cfg.AdminChatID,
	})
	tgClient.SetProcessor(engine)

	sched := scheduler.New(store, tgClient, clock, renderer, metricRegistry, logger, scheduler.Config{
		DonationDay: cfg.DonationDay,
		ReminderDay: cfg.ReminderDay,
		ReportDay:   cfg.ReportDay,
		NotifyHour:  cfg.NotifyHour,
		ReportHour:  cfg.ReportHour,
		AdminChatID: cfg.AdminChatID,
	})
	engine.SetJobs(sched)
	sched.Start(ctx)

	go func() {
		if err := tgClient.Start(ctx); err != nil {
			logger.Error("telegram client stopped", "error", err)
			stop()
		}
	}()

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, cfg.PublicBasePath)
	httpSrv.SetDependencies(httpserver.Dependencies{
		Repository: store,
		Jobs:       sched,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
