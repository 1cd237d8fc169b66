package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evanhart/storefront-backend/pkg/logger"
)

type stubCartExpirer struct {
	count   int64
	err     error
	gotTTL  time.Duration
	swept   int
	lastNow time.Time
}

func (s *stubCartExpirer) ExpireIdle(ctx context.Context, idleTTL time.Duration, now time.Time) (int64, error) {
	s.swept++
	s.gotTTL = idleTTL
	s.lastNow = now
	return s.count, s.err
}

func testJobLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
}

func TestCartExpiryJobRun(t *testing.T) {
	expirer := &stubCartExpirer{count: 4}
	job, err := NewCartExpiryJob(CartExpiryJobParams{
		Logger:  testJobLogger(),
		Carts:   expirer,
		IdleTTL: 168 * time.Hour,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	if job.Name() != "cart-expiry" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.swept != 1 || expirer.gotTTL != 168*time.Hour {
		t.Fatalf("expected one sweep with configured ttl, got %d/%s", expirer.swept, expirer.gotTTL)
	}
}

func TestCartExpiryJobPropagatesError(t *testing.T) {
	expirer := &stubCartExpirer{err: errors.New("db down")}
	job, err := NewCartExpiryJob(CartExpiryJobParams{
		Logger:  testJobLogger(),
		Carts:   expirer,
		IdleTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestCartExpiryJobParamsValidation(t *testing.T) {
	if _, err := NewCartExpiryJob(CartExpiryJobParams{Carts: &stubCartExpirer{}, IdleTTL: time.Hour}); err == nil {
		t.Fatal("missing logger must be rejected")
	}
	if _, err := NewCartExpiryJob(CartExpiryJobParams{Logger: testJobLogger(), IdleTTL: time.Hour}); err == nil {
		t.Fatal("missing cart service must be rejected")
	}
	if _, err := NewCartExpiryJob(CartExpiryJobParams{Logger: testJobLogger(), Carts: &stubCartExpirer{}}); err == nil {
		t.Fatal("zero ttl must be rejected")
	}
}
