package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics records payment ledger activity.
type LedgerMetrics struct {
	confirmed           *prometheus.CounterVec
	cancelled           *prometheus.CounterVec
	declined            *prometheus.CounterVec
	invariantViolations prometheus.Counter
}

// NewLedgerMetrics registers the payment ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	confirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmed_total",
		Help: "Payments confirmed by gateway callback.",
	}, []string{"method"})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_cancelled_total",
		Help: "Payment cancellations applied to the ledger.",
	}, []string{"kind"})
	declined := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_declined_total",
		Help: "Payment operations declined before mutation.",
	}, []string{"operation"})
	invariantViolations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_invariant_violations_total",
		Help: "Ledger balance invariant violations detected at commit time.",
	})
	reg.MustRegister(confirmed, cancelled, declined, invariantViolations)
	return &LedgerMetrics{
		confirmed:           confirmed,
		cancelled:           cancelled,
		declined:            declined,
		invariantViolations: invariantViolations,
	}
}

// IncConfirmed counts a confirmed payment for the reporting method.
func (m *LedgerMetrics) IncConfirmed(method string) {
	if m == nil || m.confirmed == nil {
		return
	}
	m.confirmed.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncCancelled counts an applied cancellation, kind is "cancel" or "partial_cancel".
func (m *LedgerMetrics) IncCancelled(kind string) {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncDeclined counts a declined operation for the given name.
func (m *LedgerMetrics) IncDeclined(operation string) {
	if m == nil || m.declined == nil {
		return
	}
	m.declined.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncInvariantViolation counts a detected ledger integrity failure.
func (m *LedgerMetrics) IncInvariantViolation() {
	if m == nil || m.invariantViolations == nil {
		return
	}
	m.invariantViolations.Inc()
}
