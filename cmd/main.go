/**
 * @description
 * This is the main entry point for the billing service. It wires the
 * configuration, database pool, event producer, payout adapters, cron
 * scheduler, and HTTP server, then runs until a termination signal.
 */
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v79"

	"github.com/Gabrielzhin/App-sub001/internal/api"
	"github.com/Gabrielzhin/App-sub001/internal/app"
	"github.com/Gabrielzhin/App-sub001/internal/config"
	"github.com/Gabrielzhin/App-sub001/internal/domain"
	"github.com/Gabrielzhin/App-sub001/internal/payouts"
	"github.com/Gabrielzhin/App-sub001/internal/store"
	"github.com/Gabrielzhin/App-sub001/pkg/giftcardclient"
	"github.com/Gabrielzhin/App-sub001/pkg/rabbitmq"
	"github.com/Gabrielzhin/App-sub001/pkg/walletclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env for local development; ignore when absent.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	stripe.Key = cfg.StripeAPIKey

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Event publishing is best-effort; fall back to a no-op when
	// RabbitMQ is not configured or unreachable.
	var publisher rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.AMQPURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, using fallback publisher", "error", err)
			publisher = &rabbitmq.EventProducerFallback{}
		} else {
			publisher = producer
		}
	} else {
		publisher = &rabbitmq.EventProducerFallback{}
	}
	defer publisher.Close()

	repository := store.NewRepository(dbpool)

	adapters := payouts.Registry{
		domain.MethodGiftCard:     payouts.NewGiftCardAdapter(giftcardclient.NewClient(cfg.GiftCardAPIURL, cfg.GiftCardAPIKey)),
		domain.MethodWallet:       payouts.NewWalletAdapter(walletclient.NewClient(cfg.WalletAPIURL, cfg.WalletAPIKey)),
		domain.MethodBankTransfer: payouts.NewBankTransferAdapter(),
	}

	referrals := app.NewReferralEngine(repository, publisher, logger)
	processor := app.NewWebhookProcessor(repository, app.StripeProvider{}, referrals, publisher, logger, cfg.StripeWebhookSecret)
	runner := app.NewPayoutRunner(repository, adapters, publisher, logger,
		cfg.ReferralPayoutAmount, cfg.ReferralPayoutCurrency, cfg.MaxPayoutAttempts)
	sweeper := app.NewGraceSweeper(repository, publisher, logger)
	admin := app.NewAdminService(repository, runner, logger)

	scheduler := app.NewScheduler(runner, sweeper, logger, *cfg)
	scheduler.Start()
	logger.Info("scheduler started")

	handler := api.NewHandler(processor, admin, logger)
	router := api.NewRouter(handler, cfg.AdminJWTSecret)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("billing service listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		// Fall through to the graceful teardown so the pool and
		// publisher still close.
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped gracefully")
}
