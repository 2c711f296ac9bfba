// Package audit derives human-readable change records for registration
// mutations. It is pure computation; persistence belongs to the store and
// orchestration to the service.
package audit

import (
	"fmt"
	"strings"
	"time"

	"examreg/internal/registration/models"
	id "examreg/pkg/domain"
)

// CreatedNotes is the fixed note attached to the single Created entry every
// registration starts its history with.
const CreatedNotes = "Registration submitted"

// Diff compares each tracked mutable field between the existing and incoming
// registrations and returns one "Field: old -> new" description per changed
// field. An empty result means the update is a no-op and deserves no entry.
func Diff(existing, incoming *models.Registration) []string {
	var changes []string
	appendChange := func(label, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", label, oldVal, newVal))
		}
	}

	appendChange("Name", existing.Name, incoming.Name)
	appendChange("Email", existing.Email, incoming.Email)
	appendChange("Student Phone", existing.StudentPhone, incoming.StudentPhone)
	appendChange("Parent Phone", existing.ParentPhone, incoming.ParentPhone)
	appendChange("School", existing.School, incoming.School)
	appendChange("Grade", existing.Grade, incoming.Grade)
	appendChange("Section", existing.Section, incoming.Section)
	appendChange("Payment Status", string(existing.PaymentStatus), string(incoming.PaymentStatus))

	return changes
}

// NewCreatedEntry builds the audit entry recorded alongside a fresh
// registration row.
func NewCreatedEntry(regID id.RegistrationID, now time.Time) *models.AuditEntry {
	return &models.AuditEntry{
		ID:             id.NewAuditEntryID(),
		RegistrationID: regID,
		Action:         models.AuditCreated,
		Actor:          "System",
		Notes:          CreatedNotes,
		CreatedAt:      now,
	}
}

// NewUpdatedEntry builds the audit entry for a non-empty change set.
func NewUpdatedEntry(regID id.RegistrationID, actor string, changes []string, now time.Time) *models.AuditEntry {
	return &models.AuditEntry{
		ID:             id.NewAuditEntryID(),
		RegistrationID: regID,
		Action:         models.AuditUpdated,
		Actor:          actor,
		Notes:          strings.Join(changes, "; "),
		CreatedAt:      now,
	}
}
