package notify

import (
	"context"
	"fmt"

	"github.com/tratoli/task-api/internal/config"
	"github.com/wneessen/go-mail"
)

// Mailer abstracts the outbound mail-sending collaborator.
type Mailer interface {
	// Send delivers one plain-text message. A non-nil error is treated
	// as transient by the dispatcher and retried.
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer implements Mailer over an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// Ensure SMTPMailer implements Mailer
var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a Mailer from the SMTP configuration. Credentials
// are optional; when a username is set, PLAIN auth is used.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send implements Mailer.Send
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
