// Package stream mirrors committed audit entries onto a Kafka topic so
// downstream consumers (reporting, compliance) can follow registration
// changes without polling the database.
//
// Publishing is fire-and-forget with the same posture as notifications: the
// registration write has already committed, so a produce failure is logged
// and swallowed, never surfaced.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"examreg/internal/registration/models"
)

// DefaultTopic is where audit records land unless configured otherwise.
const DefaultTopic = "registration.audit"

// Publisher produces audit records to Kafka asynchronously.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the given brokers. Callers should treat a nil
// *Publisher as "streaming disabled"; all methods are nil-safe.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// PublishAudit enqueues one audit entry for async production. Records for the
// same registration share a key so they stay ordered within a partition.
func (p *Publisher) PublishAudit(ctx context.Context, entry *models.AuditEntry) {
	if p == nil {
		return
	}
	value, err := json.Marshal(entry)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode audit record", "error", err.Error())
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.RegistrationID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit record produce failed",
				"registration_id", entry.RegistrationID.String(),
				"error", err.Error(),
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
