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

// CreateResult distinguishes a first creation from an idempotent replay.
// Callers need to tell them apart (201 vs 200 at the transport), but both are
// success: the same registration either way.
type CreateResult struct {
	Registration *models.Registration
	Created      bool
}

// Create registers a student at most once per idempotency key.
//
// The pre-check short-circuits obvious replays without a write. When two
// callers pass the pre-check concurrently, the store's unique constraint
// rejects the loser, which then re-reads the winner's row and reports a
// replay. Either way every caller observes the same registration and exactly
// one Created audit entry exists.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Create")
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveCreate(start)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.resolveByKey(ctx, req.IdempotencyKey)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		s.metrics.IncrementReplay()
		return &CreateResult{Registration: existing, Created: false}, nil
	}

	now := requestcontext.Now(ctx).UTC()
	reg := &models.Registration{
		ID:             id.NewRegistrationID(),
		IdempotencyKey: req.IdempotencyKey,
		Name:           req.Name,
		Email:          req.Email,
		StudentPhone:   req.StudentPhone,
		ParentPhone:    req.ParentPhone,
		School:         req.School,
		Grade:          req.Grade,
		Section:        req.Section,
		PaymentStatus:  models.PaymentPending,
		CreatedAt:      now,
		UpdatedBy:      requestcontext.SystemActor,
	}
	entry := audit.NewCreatedEntry(reg.ID, now)

	if err := s.store.Insert(ctx, reg, entry); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			winner, rerr := s.recoverLostRace(ctx, req.IdempotencyKey)
			if rerr != nil {
				span.RecordError(rerr)
				return nil, rerr
			}
			s.metrics.IncrementReplay()
			return &CreateResult{Registration: winner, Created: false}, nil
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
	}

	s.metrics.IncrementCreated()
	s.publishAudit(ctx, entry)

	// Two independent notifications: failure of one must not affect the other,
	// and neither can touch the already-committed write.
	s.queue.Enqueue(notify.StudentConfirmation(reg))
	s.queue.Enqueue(notify.StaffNotification(reg, s.staffEmail))

	return &CreateResult{Registration: reg, Created: true}, nil
}
