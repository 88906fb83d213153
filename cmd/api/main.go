package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avendano-dev/storefront-backend/api/routes"
	"github.com/avendano-dev/storefront-backend/internal/cart"
	"github.com/avendano-dev/storefront-backend/internal/checkout"
	"github.com/avendano-dev/storefront-backend/internal/users"
	"github.com/avendano-dev/storefront-backend/pkg/config"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/metrics"
	"github.com/avendano-dev/storefront-backend/pkg/orderapi"
	"github.com/avendano-dev/storefront-backend/pkg/payments"
	"github.com/avendano-dev/storefront-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	paymentsClient, err := payments.NewClient(cfg.Payments, payments.WithLogger(logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create payments client", err)
		os.Exit(1)
	}

	ordersClient, err := orderapi.NewClient(cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders client", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewRedisStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStore, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	profileService, err := users.NewService(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	sessionStore, err := checkout.NewRedisSessionStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout session store", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Sessions: sessionStore,
		Carts:    cartService,
		Profiles: profileService,
		Payments: paymentsClient,
		Orders:   ordersClient,
		Locker:   redisClient,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			registry,
			cartService,
			checkoutService,
			profileService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
