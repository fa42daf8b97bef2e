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
	"go.uber.org/multierr"

	"github.com/muxdry/storefront-backend/internal/cron"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	"github.com/muxdry/storefront-backend/pkg/migrate"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/muxdry/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shutting down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("maintenance", cfg.App.Env), 0)
	if err != nil {
		return err
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Maintenance.OutboxRetentionDays,
	})
	if err != nil {
		return err
	}
	audit, err := cron.NewDeadLetterAuditJob(cron.DeadLetterAuditJobParams{
		Logger:      logg,
		Repository:  outboxRepo,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Limit:       cfg.Maintenance.DeadLetterScanLimit,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if cfg.Maintenance.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.Maintenance.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, server.Shutdown(shutdownCtx))
		}()
	}

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:  logg,
		Lock:    lock,
		Metrics: metrics.NewJobMetrics(registry),
		Every:   cfg.Maintenance.Interval,
	}, retention, audit)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Maintenance.Interval.String(),
		"jobs":     scheduler.Jobs(),
	})
	logg.Info(ctx, "starting cron worker")
	return scheduler.Run(ctx)
}
