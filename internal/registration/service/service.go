// Package service orchestrates the registration write path: idempotent
// creation, diff-audited updates, and the fire-and-forget side effects around
// them. All mutations funnel through here so every change lands with its
// audit entry in one commit.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"examreg/internal/notify"
	regmetrics "examreg/internal/registration/metrics"
	"examreg/internal/registration/models"
	"examreg/internal/registration/store"
	id "examreg/pkg/domain"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/platform/sentinel"
)

// Queue accepts rendered notification messages for background delivery.
// Satisfied by *notify.Dispatcher; tests inject a recording fake.
type Queue interface {
	Enqueue(msg notify.Message)
}

// AuditStream mirrors committed audit entries to an external sink.
// Satisfied by *stream.Publisher.
type AuditStream interface {
	PublishAudit(ctx context.Context, entry *models.AuditEntry)
}

// DefaultStaffEmail receives the internal copy of each new registration
// unless configured otherwise.
const DefaultStaffEmail = "registrations@examreg.local"

// Service is the registration orchestrator. Dependencies are injected at
// construction; there is no ambient state.
type Service struct {
	store      store.Store
	queue      Queue
	logger     *slog.Logger
	metrics    *regmetrics.Metrics
	stream     AuditStream
	staffEmail string
	tracer     trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditStream attaches an external audit sink.
func WithAuditStream(as AuditStream) Option {
	return func(s *Service) { s.stream = as }
}

// WithStaffEmail overrides the staff notification recipient.
func WithStaffEmail(email string) Option {
	return func(s *Service) {
		if email != "" {
			s.staffEmail = email
		}
	}
}

// New constructs the registration service.
func New(st store.Store, queue Queue, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		queue:      queue,
		logger:     logger,
		staffEmail: DefaultStaffEmail,
		tracer:     otel.Tracer("examreg/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detail is a registration together with its audit trail, newest entry first.
type Detail struct {
	Registration *models.Registration `json:"registration"`
	AuditTrail   []*models.AuditEntry `json:"audit_trail"`
}

// Get returns one registration with its full audit history.
func (s *Service) Get(ctx context.Context, regID id.RegistrationID) (*Detail, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	trail, err := s.store.AuditsByRegistration(ctx, regID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return &Detail{Registration: reg, AuditTrail: trail}, nil
}

// List returns all registrations, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Registration, error) {
	regs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// Delete removes a registration; the store cascades the audit trail away with
// it.
func (s *Service) Delete(ctx context.Context, regID id.RegistrationID) error {
	ctx, span := s.tracer.Start(ctx, "registration.Delete")
	defer span.End()

	if err := s.store.Delete(ctx, regID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registration")
	}
	return nil
}

func (s *Service) publishAudit(ctx context.Context, entry *models.AuditEntry) {
	s.metrics.IncrementAudit()
	if s.stream != nil {
		s.stream.PublishAudit(ctx, entry)
	}
}
