// Package mail delivers submission and panic notifications over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	gomail "github.com/wneessen/go-mail"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.SubmissionNotifier = (*Notifier)(nil)
	_ driven.PanicNotifier      = (*Notifier)(nil)
)

// Config holds the SMTP settings. Username doubles as the sender address.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	To          string
	MaxAttempts uint64
}

// sender is the part of *gomail.Client used by Notifier.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Notifier sends plain-text emails via STARTTLS with SMTP auth, retrying
// transient failures with exponential backoff.
type Notifier struct {
	cfg        Config
	client     sender
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewNotifier creates a Notifier for cfg.
func NewNotifier(cfg Config, logger *slog.Logger) (*Notifier, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newNotifier(cfg, client, logger), nil
}

func newNotifier(cfg Config, client sender, logger *slog.Logger) *Notifier {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 4
	}
	return &Notifier{
		cfg:    cfg,
		client: client,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// NotifySubmission emails a contact submission to the configured recipient.
func (n *Notifier) NotifySubmission(ctx context.Context, s model.ContactSubmission) error {
	subject := fmt.Sprintf("Contact Submission [%d] from [%s|%s] at [%s]",
		s.ID, s.Email, s.Phone, s.ReceivedAt.Format(time.RFC3339))
	return n.send(ctx, subject, s.Message)
}

// NotifyPanic emails a recovered handler panic with its stack trace.
func (n *Notifier) NotifyPanic(ctx context.Context, r driven.PanicReport) error {
	subject := fmt.Sprintf(`%s - "%s %s" <%s>`, r.RemoteAddr, r.Method, r.URL, r.Value)
	return n.send(ctx, subject, r.Stack)
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.cfg.Username); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	op := func() error {
		return n.client.DialAndSendWithContext(ctx, msg)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(n.newBackOff(), n.cfg.MaxAttempts-1), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		n.logger.Warn("email delivery failed, retrying", "subject", subject, "retry_in", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("send email %q: %w", subject, err)
	}

	n.logger.Info("email sent", "subject", subject)
	return nil
}
