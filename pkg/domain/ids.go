// Package domain defines typed identifiers shared across the service.
//
// IDs are distinct named UUID types so the compiler rejects cross-type
// assignment (an audit entry ID can never be passed where a registration ID
// is expected). Parsing happens once at trust boundaries; everything past the
// handler works with typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "examreg/pkg/domain-errors"
)

// RegistrationID identifies a Registration. Generated server-side, never
// client-supplied on create.
type RegistrationID uuid.UUID

// AuditEntryID identifies a single audit entry.
type AuditEntryID uuid.UUID

// NewRegistrationID generates a fresh registration identifier.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewAuditEntryID generates a fresh audit entry identifier.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

// ParseRegistrationID validates and parses a registration ID from its string
// form. Rejects empty, malformed, and nil UUIDs.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(u), nil
}

// ParseAuditEntryID validates and parses an audit entry ID from its string form.
func ParseAuditEntryID(s string) (AuditEntryID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AuditEntryID{}, err
	}
	return AuditEntryID(u), nil
}

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string   { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id RegistrationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshaling so typed IDs render as canonical UUID strings in JSON.
// Named types do not inherit uuid.UUID's methods, so these are explicit.

func (id RegistrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RegistrationID) UnmarshalText(b []byte) error {
	parsed, err := ParseRegistrationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AuditEntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AuditEntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuditEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
