package notify

import (
	"context"
	"log/slog"
)

// DefaultQueueSize bounds the in-flight notification backlog.
const DefaultQueueSize = 256

// Dispatcher decouples notification delivery from the request path. Enqueue
// never blocks; when the queue is full the message is dropped with a warning,
// which is acceptable under the best-effort contract. The worker consumes the
// queue and contains every delivery failure.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
	inbox    chan Message
}

// NewDispatcher constructs a dispatcher with the given queue capacity.
// A zero or negative size falls back to DefaultQueueSize.
func NewDispatcher(notifier Notifier, logger *slog.Logger, metrics *Metrics, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		inbox:    make(chan Message, queueSize),
	}
}

// Enqueue schedules a message for delivery and returns immediately. The
// caller's transaction has already committed; nothing here can roll it back.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.inbox <- msg:
		d.metrics.recordEnqueued(msg.Kind)
	default:
		d.metrics.recordDropped(msg.Kind)
		d.logger.Warn("notification queue full, dropping message",
			"kind", msg.Kind,
			"to", msg.To,
		)
	}
}

// Pending reports the current queue depth. Intended for tests and health
// introspection.
func (d *Dispatcher) Pending() int {
	return len(d.inbox)
}

// Run consumes the queue until ctx is cancelled. Delivery failures are logged
// and swallowed; the worker keeps going.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.inbox:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	if err := d.notifier.Send(ctx, msg); err != nil {
		d.metrics.recordFailed(msg.Kind)
		d.logger.ErrorContext(ctx, "notification delivery failed",
			"kind", msg.Kind,
			"to", msg.To,
			"error", err.Error(),
		)
		return
	}
	d.metrics.recordSent(msg.Kind)
}
