package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/kafka"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	"github.com/muxdry/storefront-backend/pkg/migrate"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/muxdry/storefront-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "outbox publisher shutting down gracefully")
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

	topic := ordersTopic(cfg)
	eventRegistry, err := outbox.NewRegistry(topic)
	if err != nil {
		return err
	}

	var b broker
	switch cfg.Events.Broker {
	case config.EventBrokerKafka:
		publisher, kafkaErr := kafka.NewPublisher(ctx, cfg.Kafka, logg)
		if kafkaErr != nil {
			return kafkaErr
		}
		defer func() { err = multierr.Append(err, publisher.Close()) }()
		b = publisher
	case config.EventBrokerPubSub:
		client, pubsubErr := pubsub.NewClient(ctx, cfg.GCP, []string{topic}, logg)
		if pubsubErr != nil {
			return pubsubErr
		}
		defer func() { err = multierr.Append(err, client.Close()) }()
		b = client
	default:
		b = logBroker{logg: logg}
	}

	registry := prometheus.NewRegistry()
	if cfg.Outbox.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.Outbox.MetricsAddr,
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

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Broker:     b,
		BrokerName: cfg.Events.Broker,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Metrics:    metrics.NewOutboxMetrics(registry),
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"broker": cfg.Events.Broker,
		"topic":  topic,
	})
	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

func ordersTopic(cfg *config.Config) string {
	if cfg.Events.Broker == config.EventBrokerPubSub && cfg.PubSub.OrdersTopic != "" {
		return cfg.PubSub.OrdersTopic
	}
	return cfg.Events.Topic
}

// logBroker stands in when no broker is configured so local runs still drain the outbox.
type logBroker struct {
	logg *logger.Logger
}

func (logBroker) Ping(context.Context) error { return nil }

func (l logBroker) Publish(ctx context.Context, msg outbox.Message) error {
	ctx = l.logg.WithFields(ctx, map[string]any{
		"topic": msg.Topic,
		"key":   msg.Key,
		"bytes": len(msg.Data),
	})
	l.logg.Info(ctx, fmt.Sprintf("outbox event %s", msg.Attributes["event_type"]))
	return nil
}
