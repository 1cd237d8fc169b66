package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evanhart/storefront-backend/api/routes"
	cartsvc "github.com/evanhart/storefront-backend/internal/cart"
	couponsvc "github.com/evanhart/storefront-backend/internal/coupons"
	ordersvc "github.com/evanhart/storefront-backend/internal/orders"
	paymentsvc "github.com/evanhart/storefront-backend/internal/payments"
	productsvc "github.com/evanhart/storefront-backend/internal/products"
	settingsvc "github.com/evanhart/storefront-backend/internal/settings"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/metrics"
	"github.com/evanhart/storefront-backend/pkg/migrate"
	"github.com/evanhart/storefront-backend/pkg/redis"
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

	svcs, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	productsRepo := productsvc.NewRepository(gormDB)
	products, err := productsvc.NewService(productsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	coupons, err := couponsvc.NewService(couponsvc.NewRepository(gormDB), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	carts, err := cartsvc.NewService(cartsvc.NewRepository(gormDB), dbClient, productsRepo, coupons)
	if err != nil {
		return routes.Services{}, err
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	payments, err := paymentsvc.NewService(paymentsvc.NewRepository(gormDB), dbClient, logg, ledgerMetrics)
	if err != nil {
		return routes.Services{}, err
	}

	orders, err := ordersvc.NewService(
		ordersvc.NewRepository(gormDB),
		dbClient,
		carts,
		coupons,
		productsRepo,
		payments,
		cfg.Checkout,
	)
	if err != nil {
		return routes.Services{}, err
	}

	settings, err := settingsvc.NewService(settingsvc.NewRepository(gormDB), redisClient, cfg.Settings.CacheTTL)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products: products,
		Coupons:  coupons,
		Cart:     carts,
		Orders:   orders,
		Payments: payments,
		Settings: settings,
	}, nil
}
