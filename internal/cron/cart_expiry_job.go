package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/evanhart/storefront-backend/pkg/logger"
)

type idleCartExpirer interface {
	ExpireIdle(ctx context.Context, idleTTL time.Duration, now time.Time) (int64, error)
}

// CartExpiryJobParams configure the idle cart sweeper.
type CartExpiryJobParams struct {
	Logger  *logger.Logger
	Carts   idleCartExpirer
	IdleTTL time.Duration
}

// NewCartExpiryJob builds the cron job that expires carts with no recent
// activity so abandoned sessions stop holding coupons.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.IdleTTL <= 0 {
		return nil, fmt.Errorf("idle ttl must be positive")
	}
	return &cartExpiryJob{
		logg:    params.Logger,
		carts:   params.Carts,
		idleTTL: params.IdleTTL,
		now:     time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg    *logger.Logger
	carts   idleCartExpirer
	idleTTL time.Duration
	now     func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	count, err := j.carts.ExpireIdle(ctx, j.idleTTL, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire idle carts: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return nil
}
