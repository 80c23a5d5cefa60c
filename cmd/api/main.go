package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopdeck/shopdeck-backend/api/routes"
	"github.com/shopdeck/shopdeck-backend/internal/catalog"
	"github.com/shopdeck/shopdeck-backend/internal/checkout"
	"github.com/shopdeck/shopdeck-backend/internal/delivery"
	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/internal/orders"
	"github.com/shopdeck/shopdeck-backend/internal/payments"
	"github.com/shopdeck/shopdeck-backend/internal/withdrawals"
	"github.com/shopdeck/shopdeck-backend/pkg/commission"
	"github.com/shopdeck/shopdeck-backend/pkg/config"
	"github.com/shopdeck/shopdeck-backend/pkg/db"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/metrics"
	"github.com/shopdeck/shopdeck-backend/pkg/migrate"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
	"github.com/shopdeck/shopdeck-backend/pkg/redis"
	"github.com/shopdeck/shopdeck-backend/pkg/reference"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	codec, err := reference.NewCodec(cfg.Reference)
	if err != nil {
		logg.Error(context.Background(), "failed to create reference codec", err)
		os.Exit(1)
	}
	shortCodes, err := reference.NewShortCodeStore(redisClient, cfg.Reference.ShortCodeLen, cfg.Reference.ShortCodeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create short code store", err)
		os.Exit(1)
	}
	calc, err := commission.NewCalculator(cfg.Payouts.CommissionRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission calculator", err)
		os.Exit(1)
	}

	productRepo := catalog.NewRepository(dbClient.DB())
	draftRepo := checkout.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	withdrawalRepo := withdrawals.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	checkoutSvc, err := checkout.NewService(
		dbClient,
		draftRepo,
		productRepo,
		calc,
		codec,
		shortCodes,
		cfg.Checkout,
		cfg.FeatureFlags,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledgerRepo, cfg.Payouts, cfg.FeatureFlags)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	deliverySvc, err := delivery.NewService(dbClient, ordersRepo, ledgerSvc, outboxSvc, cfg.Delivery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	withdrawalsSvc, err := withdrawals.NewService(dbClient, withdrawalRepo, ledgerRepo, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		dbClient,
		draftRepo,
		ordersRepo,
		productRepo,
		ledgerSvc,
		outboxSvc,
		redisClient,
		shortCodes,
		codec,
		webhookMetrics,
		logg,
		cfg.Reference.WebhookAckTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, httpMetrics, prometheus.DefaultGatherer, routes.Services{
			Checkout:    checkoutSvc,
			Orders:      ordersSvc,
			Delivery:    deliverySvc,
			Ledger:      ledgerSvc,
			Withdrawals: withdrawalsSvc,
			Payments:    paymentsSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
