package mailer

import (
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/pkg/config"
)

// Mailer delivers side-channel notifications. Sends are best-effort:
// failures are logged and never surfaced to the caller.
type Mailer interface {
	Send(toName, toEmail, subject, body string)
}

// Sendgrid delivers mail through the SendGrid v3 API.
type Sendgrid struct {
	apiKey string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendgrid constructs a SendGrid-backed mailer.
func NewSendgrid(cfg config.MailConfig, logger *zap.Logger) *Sendgrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sendgrid{
		apiKey: cfg.SendgridAPIKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send delivers a plain-text message. No-op when the API key is unset.
func (m *Sendgrid) Send(toName, toEmail, subject, body string) {
	if m.apiKey == "" || toEmail == "" {
		return
	}
	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), body, "")
	resp, err := sendgrid.NewSendClient(m.apiKey).Send(msg)
	if err != nil {
		m.logger.Warn("mail send failed", zap.String("to", toEmail), zap.Error(err))
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		m.logger.Warn("mail rejected", zap.String("to", toEmail), zap.Int("status", resp.StatusCode))
	}
}

// Noop discards all messages. Used in tests and when mail is disabled.
type Noop struct{}

// Send implements Mailer.
func (Noop) Send(string, string, string, string) {}
