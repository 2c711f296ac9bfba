package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"examreg/internal/notify"
	regaudit "examreg/internal/registration/audit"
	"examreg/internal/registration/models"
	"examreg/internal/registration/service"
	"examreg/internal/registration/store"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/requestcontext"
)

// fakeQueue records enqueued messages instead of delivering them.
type fakeQueue struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (q *fakeQueue) Enqueue(msg notify.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
}

func (q *fakeQueue) byKind(kind string) []notify.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []notify.Message
	for _, m := range q.messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type ServiceSuite struct {
	suite.Suite
	store *store.InMemory
	queue *fakeQueue
	svc   *service.Service
	ctx   context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.queue = &fakeQueue{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.New(s.store, s.queue, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func newCreateRequest(key string) *models.CreateRequest {
	return &models.CreateRequest{
		RegistrationFields: models.RegistrationFields{
			Name:         "Jo Lee",
			Email:        "jo@x.com",
			StudentPhone: "555-0100",
			ParentPhone:  "555-0101",
			School:       "Riverside High",
			Grade:        "11",
			Section:      "Mathematics",
		},
		IdempotencyKey: key,
	}
}

func updateFrom(reg *models.Registration) *models.UpdateRequest {
	return &models.UpdateRequest{
		RegistrationFields: models.RegistrationFields{
			Name:         reg.Name,
			Email:        reg.Email,
			StudentPhone: reg.StudentPhone,
			ParentPhone:  reg.ParentPhone,
			School:       reg.School,
			Grade:        reg.Grade,
			Section:      reg.Section,
		},
		PaymentStatus: reg.PaymentStatus,
	}
}

func (s *ServiceSuite) TestCreate() {
	s.Run("persists registration with defaults", func() {
		result, err := s.svc.Create(s.ctx, newCreateRequest("create-1"))
		s.Require().NoError(err)
		s.True(result.Created)
		s.False(result.Registration.ID.IsZero())
		s.Equal(models.PaymentPending, result.Registration.PaymentStatus)
		s.Nil(result.Registration.UpdatedAt)
		s.Equal("System", result.Registration.UpdatedBy)
	})

	s.Run("records exactly one Created audit entry", func() {
		result, err := s.svc.Create(s.ctx, newCreateRequest("create-2"))
		s.Require().NoError(err)

		trail, err := s.store.AuditsByRegistration(s.ctx, result.Registration.ID)
		s.Require().NoError(err)
		s.Require().Len(trail, 1)
		s.Equal(models.AuditCreated, trail[0].Action)
		s.Equal("System", trail[0].Actor)
		s.Equal(regaudit.CreatedNotes, trail[0].Notes)
	})

	s.Run("enqueues student and staff notifications independently", func() {
		_, err := s.svc.Create(s.ctx, newCreateRequest("create-3"))
		s.Require().NoError(err)

		s.Len(s.queue.byKind(notify.KindStudentConfirmation), 1)
		s.Len(s.queue.byKind(notify.KindStaffNotification), 1)
	})
}

func (s *ServiceSuite) TestCreateValidation() {
	req := newCreateRequest("")
	req.Name = ""

	_, err := s.svc.Create(s.ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	fields := make([]string, 0, len(de.Fields))
	for _, f := range de.Fields {
		fields = append(fields, f.Field)
	}
	s.Contains(fields, "name")
	s.Contains(fields, "idempotency_key")

	regs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(regs, "nothing may be persisted on validation failure")
	s.Zero(s.queue.len())
}

func (s *ServiceSuite) TestIdempotentReplay() {
	first, err := s.svc.Create(s.ctx, newCreateRequest("replay"))
	s.Require().NoError(err)
	s.True(first.Created)

	second, err := s.svc.Create(s.ctx, newCreateRequest("replay"))
	s.Require().NoError(err)
	s.False(second.Created, "replay must be distinguishable from first creation")
	s.Equal(first.Registration.ID, second.Registration.ID)

	trail, err := s.store.AuditsByRegistration(s.ctx, first.Registration.ID)
	s.Require().NoError(err)
	s.Len(trail, 1, "replay must not append an audit entry")

	s.Len(s.queue.byKind(notify.KindStudentConfirmation), 1, "replay must not re-notify")
}

// TestConcurrentCreate verifies the full idempotency contract: N concurrent
// submissions with one key yield one row, one Created entry, and N responses
// all referencing the same ID.
func (s *ServiceSuite) TestConcurrentCreate() {
	const goroutines = 25

	var wg sync.WaitGroup
	var createdCount atomic.Int32
	ids := make([]string, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := s.svc.Create(s.ctx, newCreateRequest("race"))
			if err != nil {
				return
			}
			if result.Created {
				createdCount.Add(1)
			}
			ids[n] = result.Registration.ID.String()
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), createdCount.Load(), "exactly one caller wins first creation")
	for i := 1; i < goroutines; i++ {
		s.Equal(ids[0], ids[i], "every caller observes the same registration")
	}

	regs, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(regs, 1)

	trail, err := s.store.AuditsByRegistration(s.ctx, regs[0].ID)
	s.Require().NoError(err)
	s.Len(trail, 1, "exactly one Created audit entry")
}

func (s *ServiceSuite) TestUpdateDiff() {
	created, err := s.svc.Create(s.ctx, newCreateRequest("update-diff"))
	s.Require().NoError(err)
	reg := created.Registration

	req := updateFrom(reg)
	req.Name = "Jo Lee-Park"
	req.PaymentStatus = models.PaymentPaid
	req.Actor = "ops@example.org"

	updated, err := s.svc.Update(s.ctx, reg.ID, req)
	s.Require().NoError(err)
	s.Equal("Jo Lee-Park", updated.Name)
	s.Equal(models.PaymentPaid, updated.PaymentStatus)
	s.Require().NotNil(updated.UpdatedAt)
	s.Equal("ops@example.org", updated.UpdatedBy)

	trail, err := s.store.AuditsByRegistration(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(models.AuditUpdated, trail[0].Action)
	s.Equal("ops@example.org", trail[0].Actor)
	s.Contains(trail[0].Notes, "Name: Jo Lee -> Jo Lee-Park")
	s.Contains(trail[0].Notes, "Payment Status: Pending -> Paid")
}

func (s *ServiceSuite) TestUpdateNoChanges() {
	created, err := s.svc.Create(s.ctx, newCreateRequest("update-noop"))
	s.Require().NoError(err)
	reg := created.Registration
	notificationsBefore := s.queue.len()

	updated, err := s.svc.Update(s.ctx, reg.ID, updateFrom(reg))
	s.Require().NoError(err)
	s.NotNil(updated.UpdatedAt, "timestamp still advances on a no-op replacement")

	trail, err := s.store.AuditsByRegistration(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Len(trail, 1, "a no-op update must not append an audit entry")
	s.Equal(notificationsBefore, s.queue.len())
}

func (s *ServiceSuite) TestUpdateNotFound() {
	req := updateFrom(&models.Registration{
		IdempotencyKey: "ghost",
		PaymentStatus:  models.PaymentPending,
	})
	req.Name = "Ghost"
	req.Email = "ghost@x.com"

	created, err := s.svc.Create(s.ctx, newCreateRequest("present"))
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Delete(s.ctx, created.Registration.ID))

	_, err = s.svc.Update(s.ctx, created.Registration.ID, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPaymentTransitionTrigger() {
	s.Run("transition into Paid triggers one confirmation", func() {
		created, err := s.svc.Create(s.ctx, newCreateRequest("pay-1"))
		s.Require().NoError(err)

		req := updateFrom(created.Registration)
		req.PaymentStatus = models.PaymentPaid
		_, err = s.svc.Update(s.ctx, created.Registration.ID, req)
		s.Require().NoError(err)

		s.Len(s.queue.byKind(notify.KindPaymentConfirmation), 1)
	})

	s.Run("move between non-Paid values triggers nothing", func() {
		created, err := s.svc.Create(s.ctx, newCreateRequest("pay-2"))
		s.Require().NoError(err)

		req := updateFrom(created.Registration)
		req.PaymentStatus = models.PaymentStatus("Refunded")
		_, err = s.svc.Update(s.ctx, created.Registration.ID, req)
		s.Require().NoError(err)

		s.Empty(s.queue.byKind(notify.KindPaymentConfirmation))
	})

	s.Run("Paid to Paid triggers nothing", func() {
		created, err := s.svc.Create(s.ctx, newCreateRequest("pay-3"))
		s.Require().NoError(err)

		req := updateFrom(created.Registration)
		req.PaymentStatus = models.PaymentPaid
		_, err = s.svc.Update(s.ctx, created.Registration.ID, req)
		s.Require().NoError(err)
		s.Len(s.queue.byKind(notify.KindPaymentConfirmation), 1)

		req.Name = "Jo Lee Jr"
		_, err = s.svc.Update(s.ctx, created.Registration.ID, req)
		s.Require().NoError(err)
		s.Len(s.queue.byKind(notify.KindPaymentConfirmation), 1, "already Paid must not re-trigger")
	})
}

func (s *ServiceSuite) TestGetReturnsTrailNewestFirst() {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	created, err := s.svc.Create(requestcontext.WithTime(s.ctx, base), newCreateRequest("ordering"))
	s.Require().NoError(err)
	reg := created.Registration

	req := updateFrom(reg)
	req.School = "Hillcrest Academy"
	_, err = s.svc.Update(requestcontext.WithTime(s.ctx, base.Add(time.Minute)), reg.ID, req)
	s.Require().NoError(err)

	req.Grade = "12"
	_, err = s.svc.Update(requestcontext.WithTime(s.ctx, base.Add(2*time.Minute)), reg.ID, req)
	s.Require().NoError(err)

	detail, err := s.svc.Get(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Require().Len(detail.AuditTrail, 3)
	s.Contains(detail.AuditTrail[0].Notes, "Grade: 11 -> 12")
	s.Contains(detail.AuditTrail[1].Notes, "School: Riverside High -> Hillcrest Academy")
	s.Equal(models.AuditCreated, detail.AuditTrail[2].Action)
	for i := 1; i < len(detail.AuditTrail); i++ {
		s.False(detail.AuditTrail[i-1].CreatedAt.Before(detail.AuditTrail[i].CreatedAt))
	}
}

func (s *ServiceSuite) TestDeleteCascades() {
	first, err := s.svc.Create(s.ctx, newCreateRequest("cascade-1"))
	s.Require().NoError(err)
	second, err := s.svc.Create(s.ctx, newCreateRequest("cascade-2"))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, first.Registration.ID))

	_, err = s.svc.Get(s.ctx, first.Registration.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	trail, err := s.store.AuditsByRegistration(s.ctx, first.Registration.ID)
	s.Require().NoError(err)
	s.Empty(trail, "audit trail must be destroyed with its registration")

	otherTrail, err := s.store.AuditsByRegistration(s.ctx, second.Registration.ID)
	s.Require().NoError(err)
	s.Len(otherTrail, 1, "unrelated registrations keep their history")
}

func (s *ServiceSuite) TestActorDefaultsToSystem() {
	created, err := s.svc.Create(s.ctx, newCreateRequest("actor-default"))
	s.Require().NoError(err)

	req := updateFrom(created.Registration)
	req.Section = "Physics"

	updated, err := s.svc.Update(s.ctx, created.Registration.ID, req)
	s.Require().NoError(err)
	s.Equal("System", updated.UpdatedBy)

	trail, err := s.store.AuditsByRegistration(s.ctx, created.Registration.ID)
	s.Require().NoError(err)
	s.Equal("System", trail[0].Actor)
}
