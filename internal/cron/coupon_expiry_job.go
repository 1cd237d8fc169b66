package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/evanhart/storefront-backend/pkg/logger"
)

type dueCouponExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// CouponExpiryJobParams configure the user coupon sweeper.
type CouponExpiryJobParams struct {
	Logger  *logger.Logger
	Coupons dueCouponExpirer
}

// NewCouponExpiryJob builds the cron job that flips available issuances whose
// coupon window has closed.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	return &couponExpiryJob{
		logg:    params.Logger,
		coupons: params.Coupons,
		now:     time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg    *logger.Logger
	coupons dueCouponExpirer
	now     func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	count, err := j.coupons.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire user coupons: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "coupon expiry sweep complete")
	return nil
}
