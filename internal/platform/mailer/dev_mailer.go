package mailer

import (
	"github.com/sessionworks/bookings/pkg/logger"
)

// DevMailer prints emails to the logs instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

var _ Service = (*DevMailer)(nil)
