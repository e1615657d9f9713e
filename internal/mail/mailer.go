package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	errx "github.com/voyago/travel-agent/internal/core/error"
	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent/model"
)

// dialer is the slice of gomail.Dialer the mailer needs; tests inject a fake
// to prove that invalid input never opens a connection.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer formats approved travel content as an HTML email and submits it over
// the authenticated relay. Validation happens before any network activity.
type Mailer struct {
	cfg      model.SMTPConfig
	newDialr func(sender string) dialer
}

func NewMailer(cfg model.SMTPConfig) *Mailer {
	return &Mailer{
		cfg: cfg,
		newDialr: func(sender string) dialer {
			username := cfg.Username
			if username == "" {
				// Gmail app-password setup: authenticate as the sender.
				username = sender
			}
			return gomail.NewDialer(cfg.Host, cfg.Port, username, cfg.Password)
		},
	}
}

// Validate checks that every field required for delivery is present. It is
// exposed separately so callers can reject bad input before consuming a
// session's one-shot approval.
func (m *Mailer) Validate(content, sender, receiver, subject string) error {
	if sender == "" || receiver == "" || subject == "" || content == "" {
		return errx.Validation(fmt.Errorf("all fields are required"))
	}
	return nil
}

// Send validates the fields, builds a multipart message with an HTML body and
// submits it. Transport and authentication failures come back as errors for
// the caller to render as text; nothing here panics or retries.
func (m *Mailer) Send(content, sender, receiver, subject string) error {
	if err := m.Validate(content, sender, receiver, subject); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", sender)
	msg.SetHeader("To", receiver)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", content)

	if err := m.newDialr(sender).DialAndSend(msg); err != nil {
		logx.Error().Err(err).Str("receiver", receiver).Msg("email delivery failed")
		return fmt.Errorf("error sending email: %w", err)
	}

	logx.Info().Str("receiver", receiver).Str("subject", subject).Msg("email sent")
	return nil
}
