package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ticketbooth-backend/api/routes"
	"github.com/angelmondragon/ticketbooth-backend/internal/auth"
	"github.com/angelmondragon/ticketbooth-backend/internal/notifications"
	"github.com/angelmondragon/ticketbooth-backend/internal/theaters"
	"github.com/angelmondragon/ticketbooth-backend/internal/theatersystems"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/auth/session"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/env"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"github.com/angelmondragon/ticketbooth-backend/pkg/mailer"
	"github.com/angelmondragon/ticketbooth-backend/pkg/metrics"
	"github.com/angelmondragon/ticketbooth-backend/pkg/migrate"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pubsub"
	"github.com/angelmondragon/ticketbooth-backend/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "error releasing resources", errs)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	txMetrics := metrics.NewTxMetrics(registry)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	closers = append(closers, dbClient.Close)
	dbClient.SetOutcomeObserver(func(outcome db.TransactionOutcome) {
		txMetrics.IncOutcome(outcome.String())
	})

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	sender, closeSender, err := buildSender(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create mail sender", err)
		os.Exit(1)
	}
	if closeSender != nil {
		closers = append(closers, closeSender)
	}

	notifier, err := notifications.NewService(sender, cfg.App, cfg.Tokens)
	if err != nil {
		logg.Error(ctx, "failed to create notifier", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient.DB(),
		Tx:             dbClient,
		Sessions:       sessionManager,
		Notifier:       notifier,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		TokenConfig:    cfg.Tokens,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	theaterService, err := theaters.NewService(theaters.ServiceParams{
		DB:             dbClient.DB(),
		Tx:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create theater service", err)
		os.Exit(1)
	}

	systemService, err := theatersystems.NewService(theatersystems.ServiceParams{
		DB:       dbClient.DB(),
		Tx:       dbClient,
		Theaters: theaters.StoreFor,
		Policy:   cfg.Policy,
	})
	if err != nil {
		logg.Error(ctx, "failed to create theater system service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create user service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"mail_driver": cfg.Mail.Driver,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			httpMetrics,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			authService,
			theaterService,
			systemService,
			userService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

// buildSender picks the mail transport named by the config. The returned
// closer is nil when the transport holds no resources.
func buildSender(ctx context.Context, cfg *config.Config, logg *logger.Logger) (mailer.Sender, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mail.Driver)) {
	case config.MailDriverSMTP:
		sender, err := mailer.NewSMTPSender(cfg.Mail)
		return sender, nil, err
	case config.MailDriverPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, err
		}
		publisher, err := pubsub.NewJobPublisher(client.EmailPublisher())
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		sender, err := mailer.NewQueueSender(publisher)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return sender, func() error {
			publisher.Stop()
			return client.Close()
		}, nil
	default:
		return mailer.NewLogSender(logg), nil, nil
	}
}
