package models

import (
	"strings"

	dErrors "examreg/pkg/domain-errors"
)

// Field length bounds enforced at the trust boundary. The database columns
// match these, so nothing past validation needs to re-check.
const (
	maxNameLen    = 120
	maxEmailLen   = 254
	maxPhoneLen   = 32
	maxSchoolLen  = 120
	maxGradeLen   = 16
	maxSectionLen = 64
	maxKeyLen     = 128
	maxStatusLen  = 32
	maxActorLen   = 120
)

// RegistrationFields is the validated field set shared by create and update
// requests. Updates are full replacement, so both carry the same shape.
type RegistrationFields struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	StudentPhone string `json:"student_phone"`
	ParentPhone  string `json:"parent_phone"`
	School       string `json:"school"`
	Grade        string `json:"grade"`
	Section      string `json:"section"`
}

// CreateRequest is the payload for registering a student.
type CreateRequest struct {
	RegistrationFields
	IdempotencyKey string `json:"idempotency_key"`
}

// UpdateRequest is the full-replacement payload for mutating a registration.
// Actor defaults to System when unspecified.
type UpdateRequest struct {
	RegistrationFields
	PaymentStatus PaymentStatus `json:"payment_status"`
	Actor         string        `json:"actor"`
}

// Validate checks the shared field set and returns one FieldError per problem.
func (f *RegistrationFields) Validate() []dErrors.FieldError {
	var fields []dErrors.FieldError

	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		fields = append(fields, dErrors.FieldError{Field: "name", Message: "name is required"})
	} else if len(f.Name) > maxNameLen {
		fields = append(fields, dErrors.FieldError{Field: "name", Message: "name is too long"})
	}

	f.Email = strings.TrimSpace(f.Email)
	switch {
	case f.Email == "":
		fields = append(fields, dErrors.FieldError{Field: "email", Message: "email is required"})
	case len(f.Email) > maxEmailLen:
		fields = append(fields, dErrors.FieldError{Field: "email", Message: "email is too long"})
	case !strings.Contains(f.Email[1:], "@"):
		fields = append(fields, dErrors.FieldError{Field: "email", Message: "email is malformed"})
	}

	if len(f.StudentPhone) > maxPhoneLen {
		fields = append(fields, dErrors.FieldError{Field: "student_phone", Message: "student phone is too long"})
	}
	if len(f.ParentPhone) > maxPhoneLen {
		fields = append(fields, dErrors.FieldError{Field: "parent_phone", Message: "parent phone is too long"})
	}
	if len(f.School) > maxSchoolLen {
		fields = append(fields, dErrors.FieldError{Field: "school", Message: "school is too long"})
	}
	if len(f.Grade) > maxGradeLen {
		fields = append(fields, dErrors.FieldError{Field: "grade", Message: "grade is too long"})
	}
	if len(f.Section) > maxSectionLen {
		fields = append(fields, dErrors.FieldError{Field: "section", Message: "section is too long"})
	}
	return fields
}

// Validate checks a create payload. The idempotency key is client-supplied
// and required; without it retries cannot be deduplicated.
func (r *CreateRequest) Validate() error {
	fields := r.RegistrationFields.Validate()

	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if r.IdempotencyKey == "" {
		fields = append(fields, dErrors.FieldError{Field: "idempotency_key", Message: "idempotency_key is required"})
	} else if len(r.IdempotencyKey) > maxKeyLen {
		fields = append(fields, dErrors.FieldError{Field: "idempotency_key", Message: "idempotency_key is too long"})
	}

	if len(fields) > 0 {
		return dErrors.NewValidation(fields)
	}
	return nil
}

// Validate checks an update payload.
func (r *UpdateRequest) Validate() error {
	fields := r.RegistrationFields.Validate()

	if r.PaymentStatus == "" {
		fields = append(fields, dErrors.FieldError{Field: "payment_status", Message: "payment_status is required"})
	} else if len(r.PaymentStatus) > maxStatusLen {
		fields = append(fields, dErrors.FieldError{Field: "payment_status", Message: "payment_status is too long"})
	}

	r.Actor = strings.TrimSpace(r.Actor)
	if len(r.Actor) > maxActorLen {
		fields = append(fields, dErrors.FieldError{Field: "actor", Message: "actor is too long"})
	}

	if len(fields) > 0 {
		return dErrors.NewValidation(fields)
	}
	return nil
}
