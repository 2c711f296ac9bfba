package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts notification outcomes per message kind. All methods are
// nil-safe so tests can run without a registry.
type Metrics struct {
	enqueued *prometheus.CounterVec
	sent     *prometheus.CounterVec
	failed   *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

// NewMetrics creates and registers the notification metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		enqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "examreg_notifications_enqueued_total",
			Help: "Notifications accepted onto the dispatch queue",
		}, []string{"kind"}),
		sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "examreg_notifications_sent_total",
			Help: "Notifications delivered by the worker",
		}, []string{"kind"}),
		failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "examreg_notifications_failed_total",
			Help: "Notification deliveries that failed and were swallowed",
		}, []string{"kind"}),
		dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "examreg_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		}, []string{"kind"}),
	}
}

func (m *Metrics) recordEnqueued(kind string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordSent(kind string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordFailed(kind string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}
