// Package notify delivers outbound registration emails on a best-effort
// basis. The request path enqueues and returns; a background worker sends.
// Delivery failure never affects an already-committed registration write.
package notify

import (
	"context"
	"fmt"

	"examreg/internal/registration/models"
)

// Known message kinds, used for logging and metrics labels.
const (
	KindStudentConfirmation = "student_confirmation"
	KindStaffNotification   = "staff_notification"
	KindPaymentConfirmation = "payment_confirmation"
)

// Message is the fixed contract handed to a Notifier. Subject and body are
// fully rendered before enqueueing so the worker needs no domain knowledge.
type Message struct {
	Kind    string
	To      string
	Subject string
	Body    string
}

// Notifier sends a single message through an external channel. Implementations
// are treated as fire-and-forget by the dispatcher: an error is logged, never
// retried, never surfaced.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// StudentConfirmation renders the email confirming a new submission to the
// registering student.
func StudentConfirmation(reg *models.Registration) Message {
	return Message{
		Kind:    KindStudentConfirmation,
		To:      reg.Email,
		Subject: "Exam registration received",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour exam registration has been received.\n\nSchool: %s\nGrade: %s\nSection: %s\nPayment status: %s\n\nRegistration ID: %s\n",
			reg.Name, reg.School, reg.Grade, reg.Section, reg.PaymentStatus, reg.ID,
		),
	}
}

// StaffNotification renders the internal heads-up sent when a new
// registration lands.
func StaffNotification(reg *models.Registration, staffEmail string) Message {
	return Message{
		Kind:    KindStaffNotification,
		To:      staffEmail,
		Subject: fmt.Sprintf("New exam registration: %s", reg.Name),
		Body: fmt.Sprintf(
			"A new registration was submitted.\n\nName: %s\nEmail: %s\nSchool: %s\nGrade: %s\nSection: %s\n\nRegistration ID: %s\n",
			reg.Name, reg.Email, reg.School, reg.Grade, reg.Section, reg.ID,
		),
	}
}

// PaymentConfirmation renders the email sent when payment status transitions
// into Paid.
func PaymentConfirmation(reg *models.Registration) Message {
	return Message{
		Kind:    KindPaymentConfirmation,
		To:      reg.Email,
		Subject: "Exam registration payment confirmed",
		Body: fmt.Sprintf(
			"Hello %s,\n\nWe have recorded your payment for the %s exam section.\nYour registration is confirmed.\n\nRegistration ID: %s\n",
			reg.Name, reg.Section, reg.ID,
		),
	}
}
