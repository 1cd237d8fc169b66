package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	cartsvc "github.com/evanhart/storefront-backend/internal/cart"
	couponsvc "github.com/evanhart/storefront-backend/internal/coupons"
	"github.com/evanhart/storefront-backend/internal/cron"
	productsvc "github.com/evanhart/storefront-backend/internal/products"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/metrics"
	"github.com/evanhart/storefront-backend/pkg/migrate"
	"github.com/evanhart/storefront-backend/pkg/redis"
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

	gormDB := dbClient.DB()

	coupons, err := couponsvc.NewService(couponsvc.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire coupon service", err)
		os.Exit(1)
	}

	carts, err := cartsvc.NewService(cartsvc.NewRepository(gormDB), dbClient, productsvc.NewRepository(gormDB), coupons)
	if err != nil {
		logg.Error(context.Background(), "failed to wire cart service", err)
		os.Exit(1)
	}

	cartExpiry, err := cron.NewCartExpiryJob(cron.CartExpiryJobParams{
		Logger:  logg,
		Carts:   carts,
		IdleTTL: cfg.Cart.IdleTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build cart expiry job", err)
		os.Exit(1)
	}

	couponExpiry, err := cron.NewCouponExpiryJob(cron.CouponExpiryJobParams{
		Logger:  logg,
		Coupons: coupons,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build coupon expiry job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(lockEnv(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cartExpiry, couponExpiry),
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
