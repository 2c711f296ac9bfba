package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig carries the settings for the plain-SMTP notifier.
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// SMTPNotifier sends mail over plain SMTP. It holds no connection state; each
// Send dials fresh, which fits the low-volume best-effort delivery model.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier constructs the notifier. Auth is skipped when no username
// is configured (local relays, mailhog in development).
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Send(_ context.Context, msg Message) error {
	var auth smtp.Auth
	if n.cfg.Username != "" {
		host := n.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		n.cfg.From, msg.To, msg.Subject, msg.Body)

	if err := smtp.SendMail(n.cfg.Addr, auth, n.cfg.From, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
