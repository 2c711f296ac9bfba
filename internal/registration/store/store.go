// Package store persists registrations and their audit trail.
//
// Implementations guarantee that the idempotency-key uniqueness constraint is
// enforced by the storage layer itself, not just by application pre-checks, so
// the service's race-recovery path has a real backstop. Insert and Update are
// atomic with their audit entry: both land in one commit or neither does.
package store

import (
	"context"

	"examreg/internal/registration/models"
	id "examreg/pkg/domain"
)

// Store is the persistence contract for registrations.
//
// Error contract: lookups return sentinel.ErrNotFound when the target row does
// not exist; Insert returns sentinel.ErrAlreadyUsed (wrapped) when the
// idempotency key is already bound to a row. Any other error is an opaque
// persistence failure and propagates unchanged.
type Store interface {
	// Insert persists a new registration together with its Created audit
	// entry in a single atomic commit.
	Insert(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error

	// Update persists a full-row replacement. When entry is non-nil it is
	// appended in the same commit. Returns sentinel.ErrNotFound when the
	// row is absent.
	Update(ctx context.Context, reg *models.Registration, entry *models.AuditEntry) error

	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindByKey(ctx context.Context, key string) (*models.Registration, error)

	// List returns all registrations ordered by creation time, newest first.
	List(ctx context.Context) ([]*models.Registration, error)

	Exists(ctx context.Context, regID id.RegistrationID) (bool, error)

	// Delete removes the registration and, by cascade, every audit entry it
	// owns. Returns sentinel.ErrNotFound when the row is absent.
	Delete(ctx context.Context, regID id.RegistrationID) error

	// AppendAudit adds a single entry outside of a row mutation.
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error

	// AuditsByRegistration returns the audit trail ordered by timestamp,
	// newest first.
	AuditsByRegistration(ctx context.Context, regID id.RegistrationID) ([]*models.AuditEntry, error)
}
