package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email sends the report as a plain-text message over SMTP
type Email struct {
	from   string
	to     []string
	client mailSender
	logger zerolog.Logger
}

// NewEmail uses PLAIN auth when user is set and STARTTLS when the server
// offers it
func NewEmail(host string, port int, user, password, from string, to []string) (*Email, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return newEmail(client, from, to), nil
}

func newEmail(client mailSender, from string, to []string) *Email {
	return &Email{
		from:   from,
		to:     to,
		client: client,
		logger: log.With().Str("component", "email").Logger(),
	}
}

func (e *Email) Notify(ctx context.Context, subject, body string) error {
	msg, err := e.message(subject, body)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	e.logger.Info().Strs("to", e.to).Msg("Report mailed")
	return nil
}

func (e *Email) message(subject, body string) (*mail.Msg, error) {
	if len(e.to) == 0 {
		return nil, errors.New("email: no recipients")
	}

	msg := mail.NewMsg()
	if err := msg.From(e.from); err != nil {
		return nil, fmt.Errorf("email sender %q: %w", e.from, err)
	}
	if err := msg.To(e.to...); err != nil {
		return nil, fmt.Errorf("email recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
