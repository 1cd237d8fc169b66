package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLedgerMetrics(reg)

	metrics.IncConfirmed("card")
	metrics.IncCancelled("partial_cancel")
	metrics.IncCancelled("partial_cancel")
	metrics.IncDeclined("cancel")
	metrics.IncInvariantViolation()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_confirmed_total", "method", "card"); err != nil {
		t.Fatalf("fetch confirmed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected confirmed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_cancelled_total", "kind", "partial_cancel"); err != nil {
		t.Fatalf("fetch cancelled: %v", err)
	} else if got != 2 {
		t.Fatalf("expected cancelled=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_declined_total", "operation", "cancel"); err != nil {
		t.Fatalf("fetch declined: %v", err)
	} else if got != 1 {
		t.Fatalf("expected declined=1, got %f", got)
	}

	violations := findMetricFamily(mfs, "payment_invariant_violations_total")
	if violations == nil {
		t.Fatal("invariant violation counter not exported")
	}
	if got := violations.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected violations=1, got %f", got)
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var metrics *LedgerMetrics
	metrics.IncConfirmed("card")
	metrics.IncCancelled("cancel")
	metrics.IncDeclined("confirm")
	metrics.IncInvariantViolation()

	empty := NewLedgerMetrics(nil)
	empty.IncConfirmed("card")
	empty.IncInvariantViolation()
}
