package service

import (
	"context"
	"errors"
	"time"

	"examreg/internal/notify"
	"examreg/internal/registration/audit"
	"examreg/internal/registration/models"
	id "examreg/pkg/domain"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/platform/sentinel"
	"examreg/pkg/requestcontext"
)

// Update applies a full replacement field set to an existing registration.
//
// The diff each caller records reflects the pre-image it read. Concurrent
// updates to the same registration are deliberately not serialized beyond the
// store's per-row semantics: last writer wins at the row level, with one
// independent audit entry per writer. This is the chosen consistency level,
// not an accident.
func (s *Service) Update(ctx context.Context, regID id.RegistrationID, req *models.UpdateRequest) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Update")
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveUpdate(start)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	actor := req.Actor
	if actor == "" {
		actor = requestcontext.Actor(ctx)
	}

	now := requestcontext.Now(ctx).UTC()
	updated := *existing
	updated.Name = req.Name
	updated.Email = req.Email
	updated.StudentPhone = req.StudentPhone
	updated.ParentPhone = req.ParentPhone
	updated.School = req.School
	updated.Grade = req.Grade
	updated.Section = req.Section
	updated.PaymentStatus = req.PaymentStatus
	updated.UpdatedAt = &now
	updated.UpdatedBy = actor

	changes := audit.Diff(existing, &updated)
	var entry *models.AuditEntry
	if len(changes) > 0 {
		entry = audit.NewUpdatedEntry(regID, actor, changes, now)
	}

	if err := s.store.Update(ctx, &updated, entry); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist update")
	}

	if entry != nil {
		s.publishAudit(ctx, entry)
	}

	// Business trigger, not a generic "status changed" hook: only the
	// transition into Paid sends a confirmation. Paid-to-Paid and moves
	// between non-Paid values stay silent.
	if !existing.IsPaid() && updated.IsPaid() {
		s.metrics.IncrementPaymentConfirmation()
		s.queue.Enqueue(notify.PaymentConfirmation(&updated))
	}

	return &updated, nil
}
