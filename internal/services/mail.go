package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/localnerve/jam-build-crm/internal/config"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer delivers through the configured SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailer returns an SMTP mailer, or a log mailer when no SMTP host is configured.
func NewMailer(cfg *config.Config, log zerolog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return NewLogMailer(log)
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SendEmailFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTimeout(15 * time.Second),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in development.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "mail").Logger()}
}

func (m *LogMailer) Send(_ context.Context, to, subject, html string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Str("body", html).Msg("mail not sent, no SMTP host configured")
	return nil
}
