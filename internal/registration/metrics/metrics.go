package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
// Tracks creation and replay counts plus write-path durations.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	IdempotentReplays    prometheus.Counter
	AuditEntriesAppended prometheus.Counter
	PaymentConfirmations prometheus.Counter
	CreateDuration       prometheus.Histogram
	UpdateDuration       prometheus.Histogram
}

// New creates a new Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "examreg_registrations_created_total",
			Help: "Total number of registrations created",
		}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "examreg_idempotent_replays_total",
			Help: "Create requests resolved to an existing registration by idempotency key",
		}),
		AuditEntriesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "examreg_audit_entries_total",
			Help: "Audit entries appended across all registrations",
		}),
		PaymentConfirmations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "examreg_payment_confirmations_total",
			Help: "Confirmation notifications triggered by a transition into Paid",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "examreg_create_duration_seconds",
			Help:    "Duration of Create operations (idempotent write path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "examreg_update_duration_seconds",
			Help:    "Duration of Update operations (diff and audit path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// All methods are nil-safe so unit tests can pass a nil *Metrics.

// IncrementCreated records a successful first creation.
func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
}

// IncrementReplay records a create request that resolved to an existing row.
func (m *Metrics) IncrementReplay() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}

// IncrementAudit records one appended audit entry.
func (m *Metrics) IncrementAudit() {
	if m == nil {
		return
	}
	m.AuditEntriesAppended.Inc()
}

// IncrementPaymentConfirmation records a Paid transition trigger.
func (m *Metrics) IncrementPaymentConfirmation() {
	if m == nil {
		return
	}
	m.PaymentConfirmations.Inc()
}

// ObserveCreate records the duration of a Create operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveUpdate records the duration of an Update operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpdate(start time.Time) {
	if m == nil {
		return
	}
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}
