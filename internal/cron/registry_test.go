package cron

import (
	"context"
	"testing"
)

type noopJob struct {
	name string
}

func (j *noopJob) Name() string              { return j.name }
func (j *noopJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	expire := &noopJob{name: "cart-expiry"}
	sweep := &noopJob{name: "coupon-expiry"}
	registry.Register(expire)
	registry.Register(sweep)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != expire || jobs[1] != sweep {
		t.Fatalf("jobs returned out of order")
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked to caller")
	}
}
