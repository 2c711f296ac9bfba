package models

import (
	"time"

	id "examreg/pkg/domain"
)

// PaymentStatus tracks how far a registration's payment has progressed.
// The core treats it as an open string so operators can introduce their own
// states, but Pending and Paid carry semantics: Pending is the creation
// default, and the transition into Paid triggers the confirmation email.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// Registration is the aggregate root for one exam-registration submission.
//
// Invariants:
//   - IdempotencyKey is unique across all registrations and immutable
//   - ID and CreatedAt are immutable once set
//   - PaymentStatus is always present; defaults to Pending at creation
//   - UpdatedAt is nil until the first mutation
//   - Every mutation flows through the registration service so each one
//     produces a corresponding audit entry
type Registration struct {
	ID             id.RegistrationID `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	StudentPhone   string            `json:"student_phone"`
	ParentPhone    string            `json:"parent_phone"`
	School         string            `json:"school"`
	Grade          string            `json:"grade"`
	Section        string            `json:"section"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`
	UpdatedBy      string            `json:"updated_by"`
}

// IsPaid reports whether the registration's payment has been settled.
func (r *Registration) IsPaid() bool {
	return r.PaymentStatus == PaymentPaid
}

// AuditAction labels what kind of mutation an audit entry records.
type AuditAction string

const (
	AuditCreated AuditAction = "Created"
	AuditUpdated AuditAction = "Updated"
)

// AuditEntry is one append-only record of a mutation to a Registration.
// Entries are owned exclusively by their registration and are destroyed with
// it; they are never mutated or deleted individually.
type AuditEntry struct {
	ID             id.AuditEntryID   `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	Action         AuditAction       `json:"action"`
	Actor          string            `json:"actor"`
	Notes          string            `json:"notes"`
	CreatedAt      time.Time         `json:"created_at"`
}
