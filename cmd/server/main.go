package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"remit/internal/config"
	"remit/internal/db"
	"remit/internal/fx"
	"remit/internal/gateway"
	"remit/internal/handlers"
	"remit/internal/services"
	"remit/internal/store"
	"remit/internal/websocket"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.With().Str("service", "remit").Logger()
	if cfg.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET is not set, gateway notifications will be refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	countries := store.NewCountryStore(database)
	methods := store.NewPaymentMethodStore(database)
	rates := store.NewRateStore(database)
	fxCache := store.NewFxCacheStore(database)
	wallets := store.NewWalletStore(database)
	entries := store.NewWalletEntryStore(database)
	transactions := store.NewTransactionStore(database)
	events := store.NewEventStore(database)
	txRunner := db.NewTxRunner(database)

	fxProvider := fx.NewProvider(fxCache, fx.Options{
		PrimaryURL:   cfg.FxPrimaryURL,
		SecondaryURL: cfg.FxSecondaryURL,
		APIKey:       cfg.FxAPIKey,
		CacheTTL:     cfg.FxCacheTTL,
		HTTPTimeout:  cfg.FxHTTPTimeout,
	}, logger)

	gateways := gateway.NewRegistry()
	gateways.Register("flutterwave", gateway.NewFlutterwave(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecret, cfg.GatewayHTTPTimeout))
	gateways.Register("cinetpay", gateway.NewCinetPay(cfg.CinetPayBaseURL, cfg.CinetPayAPIKey, cfg.CinetPaySiteID, cfg.GatewayHTTPTimeout))

	hub := websocket.NewHub()

	pricing := services.NewPricingService(rates, countries, fxProvider, logger)
	ledger := services.NewWalletService(txRunner, wallets, entries, methods, gateways, hub, logger)
	payout := services.NewPayoutService(wallets)
	machine := services.NewTransactionService(txRunner, transactions, events, ledger, pricing, methods, countries, gateways, logger)
	sweeper := services.NewReconciliationService(transactions, machine, cfg.SweepVerifyAfter, cfg.SweepExpireAfter, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer sweepCancel()
		if _, err := sweeper.Sweep(sweepCtx); err != nil {
			logger.Error().Err(err).Msg("scheduled sweep failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("invalid sweep schedule")
	}
	scheduler.Start()

	handler := handlers.New(cfg, countries, methods, wallets, entries, events, pricing, machine, payout, ledger, sweeper, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("remit API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("shutdown error")
	}
}
