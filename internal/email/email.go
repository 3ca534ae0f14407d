// Package email provides outbound email delivery behind a small Sender
// interface so the rest of the system never touches SMTP directly.
package email

import "context"

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error
}

// NoopSender drops all email. Used when email delivery is disabled.
type NoopSender struct{}

// Send discards the message.
func (NoopSender) Send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	return nil
}
