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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/muxdry/storefront-backend/api/controllers"
	"github.com/muxdry/storefront-backend/api/routes"
	"github.com/muxdry/storefront-backend/internal/auth"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/internal/contact"
	"github.com/muxdry/storefront-backend/internal/favorites"
	"github.com/muxdry/storefront-backend/internal/messages"
	"github.com/muxdry/storefront-backend/internal/notifications"
	"github.com/muxdry/storefront-backend/internal/orders"
	"github.com/muxdry/storefront-backend/internal/reviews"
	"github.com/muxdry/storefront-backend/internal/users"
	"github.com/muxdry/storefront-backend/pkg/auth/session"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/mailer"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	"github.com/muxdry/storefront-backend/pkg/migrate"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/muxdry/storefront-backend/pkg/redis"
	"github.com/muxdry/storefront-backend/pkg/security"
	"github.com/muxdry/storefront-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg, logg)
	if err != nil {
		return err
	}

	messageKey, err := cfg.Messages.Key()
	if err != nil {
		return err
	}
	cipher, err := security.NewMessageCipher(messageKey)
	if err != nil {
		return err
	}
	if !cipher.Enabled() {
		logg.Warn(ctx, "message encryption key not set, chat bodies are stored in plain text")
	}

	notifier, err := notifications.NewAdminNotifier(mailer.New(cfg.Email, logg), cfg.Email.AdminEmail, cfg.Shop.Name)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	if _, err := users.EnsureSuperuser(ctx, userRepo, cfg.Bootstrap, cfg.Password, logg); err != nil {
		return err
	}
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	deps := routes.Dependencies{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Sessions:       sessionManager,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
	}
	if pinger, ok := store.(controllers.Pinger); ok {
		deps.Pingers["storage"] = pinger
	}
	if local, ok := store.(*storage.Local); ok {
		deps.Uploads = http.FileServer(http.Dir(local.Root()))
	}

	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return err
	}
	if deps.Users, err = users.NewService(users.ServiceParams{
		Repo:           userRepo,
		Sessions:       sessionManager,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return err
	}
	if deps.Catalog, err = catalog.NewService(catalog.ServiceParams{
		Repo:           catalogRepo,
		Storage:        store,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		Logger:         logg,
	}); err != nil {
		return err
	}
	if deps.Cart, err = cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Tx:       dbClient,
		Products: catalogRepo,
	}); err != nil {
		return err
	}
	if deps.Favorites, err = favorites.NewService(favorites.ServiceParams{
		Repo:     favorites.NewRepository(conn),
		Products: catalogRepo,
	}); err != nil {
		return err
	}
	if deps.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Carts:    cartRepo,
		Users:    userRepo,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Notifier: notifier,
		Metrics:  metrics.NewOrderMetrics(registry),
		Logger:   logg,
	}); err != nil {
		return err
	}
	if deps.Messages, err = messages.NewService(messages.ServiceParams{
		Repo:           messages.NewRepository(conn),
		Cipher:         cipher,
		Storage:        store,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		Logger:         logg,
	}); err != nil {
		return err
	}
	if deps.Reviews, err = reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(conn),
		Products: catalogRepo,
	}); err != nil {
		return err
	}
	if deps.Contact, err = contact.NewService(notifier, logg); err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Driver,
	})
	logg.Info(serverCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
