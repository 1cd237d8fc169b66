package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubCouponExpirer struct {
	count   int64
	err     error
	swept   int
	lastNow time.Time
}

func (s *stubCouponExpirer) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	s.swept++
	s.lastNow = now
	return s.count, s.err
}

func TestCouponExpiryJobRun(t *testing.T) {
	expirer := &stubCouponExpirer{count: 2}
	job, err := NewCouponExpiryJob(CouponExpiryJobParams{
		Logger:  testJobLogger(),
		Coupons: expirer,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	if job.Name() != "coupon-expiry" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.swept != 1 {
		t.Fatalf("expected one sweep, got %d", expirer.swept)
	}
	if expirer.lastNow.IsZero() || expirer.lastNow.Location() != time.UTC {
		t.Fatalf("expected UTC sweep time, got %v", expirer.lastNow)
	}
}

func TestCouponExpiryJobPropagatesError(t *testing.T) {
	expirer := &stubCouponExpirer{err: errors.New("db down")}
	job, err := NewCouponExpiryJob(CouponExpiryJobParams{
		Logger:  testJobLogger(),
		Coupons: expirer,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestCouponExpiryJobParamsValidation(t *testing.T) {
	if _, err := NewCouponExpiryJob(CouponExpiryJobParams{Coupons: &stubCouponExpirer{}}); err == nil {
		t.Fatal("missing logger must be rejected")
	}
	if _, err := NewCouponExpiryJob(CouponExpiryJobParams{Logger: testJobLogger()}); err == nil {
		t.Fatal("missing coupon service must be rejected")
	}
}
